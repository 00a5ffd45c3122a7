// Package auth provides pluggable authentication for the engine hub API.
//
// Authentication uses a chain of responsibility with three-outcome voting:
// each authenticator returns Yes (identity found), No (credentials
// invalid) or Abstain (cannot handle). The chain's default decision
// applies when every authenticator abstains.
//
// Auth is implemented as HTTP middleware so that the registry stays
// unaware of callers. RequireScope guards operations that hit remote
// catalogs.
package auth
