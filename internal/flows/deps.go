package flows

// Deps groups flow dependency sets. The gateway builds this once at Build
// time and delegates each operation to the matching flow.
type Deps struct {
	Guard          GuardDeps
	IssueSession   IssueSessionDeps
	CreateUser     CreateUserDeps
	ChangePassword ChangePasswordDeps
}
