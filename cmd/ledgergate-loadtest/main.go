// Command ledgergate-loadtest drives an in-process gateway with concurrent
// encoded requests and prints latency percentiles per phase.
//
// Phases:
//
//	public   echo requests (decode, dispatch, encode)
//	guarded  a USER-level no-op (full credential and session checks)
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/ledgergate"
	"github.com/MrEthical07/ledgergate/internal"
	"github.com/MrEthical07/ledgergate/permission"
	"github.com/MrEthical07/ledgergate/wire"
)

const noopOperation = "loadtest_noop"

type account struct {
	name       string
	password   string
	sessionKey string
}

func main() {
	var (
		users       = flag.Int("users", 64, "number of accounts to seed, each with one open session")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "requests per phase")
		memoryKB    = flag.Uint("argon2-memory", 8*1024, "argon2id memory in KiB for seeded accounts")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lgload", "key prefix for users and sessions")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	gw, err := buildGateway(client, *prefix, uint32(*memoryKB))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build gateway: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	ctx := context.Background()
	fmt.Printf("seeding %d accounts...\n", *users)
	startSeed := time.Now()
	accounts, err := seed(ctx, gw, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	public := runPhase(ctx, gw, accounts, *ops, *concurrency, func(_ *account, i int) *wire.Request {
		return &wire.Request{Request: "echo", Data: []byte(fmt.Sprintf("msg-%d", i))}
	})
	guarded := runPhase(ctx, gw, accounts, *ops, *concurrency, func(a *account, _ int) *wire.Request {
		return &wire.Request{Request: noopOperation, User: a.name, Password: a.password, SessionKey: a.sessionKey}
	})

	fmt.Println("---- results ----")
	printStats("public", public)
	printStats("guarded", guarded)
}

func buildGateway(client redis.UniversalClient, prefix string, memoryKB uint32) (*ledgergate.Gateway, error) {
	secret, err := internal.NewSecret(32)
	if err != nil {
		return nil, err
	}
	cfg := ledgergate.DefaultConfig()
	cfg.Session.SigningSecret = secret
	cfg.Session.RedisPrefix = prefix + ":s"
	cfg.Account.RedisPrefix = prefix + ":u"
	cfg.Password.Memory = memoryKB
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	noop := func(context.Context, *ledgergate.Call) (ledgergate.Result, error) {
		return ledgergate.OK(nil), nil
	}
	return ledgergate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithOperation(noopOperation, permission.Require(permission.User), noop).
		Build()
}

func seed(ctx context.Context, gw *ledgergate.Gateway, n int) ([]account, error) {
	out := make([]account, n)
	for i := range out {
		a := account{
			name:     fmt.Sprintf("load-%d", i),
			password: fmt.Sprintf("pw-%d", i),
		}
		if err := gw.Bootstrap(ctx, a.name, a.password, permission.User); err != nil {
			return nil, fmt.Errorf("create %s: %w", a.name, err)
		}
		resp := gw.Process(ctx, wire.EncodeRequest(&wire.Request{Request: "session", User: a.name, Password: a.password}))
		if !resp.Successful {
			return nil, fmt.Errorf("open session for %s: %s", a.name, resp.Data)
		}
		a.sessionKey = string(resp.Data)
		out[i] = a
	}
	return out, nil
}

func runPhase(ctx context.Context, gw *ledgergate.Gateway, accounts []account, ops, concurrency int, build func(*account, int) *wire.Request) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				raw := wire.EncodeRequest(build(&accounts[r.Intn(len(accounts))], i))
				t0 := time.Now()
				resp := gw.Process(ctx, raw)
				d := time.Since(t0)
				if !resp.Successful {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-8s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
