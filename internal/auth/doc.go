// Package auth provides authentication and role-based authorisation for
// Gray Logic Auth.
//
// It is built from five collaborating parts:
//   - CredentialStore: user accounts, password policy and hashing
//     (Argon2id by default, bcrypt selectable, both verified by prefix)
//   - RoleRegistry: named roles and user-role membership
//   - TokenIssuer: HS256 JWT access tokens carrying one "roles" entry per
//     held role, valid for 30 minutes from issuance
//   - Service: the register, login and assign-role workflows
//   - Authorizer: the AnyOf/AllOf access decision over a token's roles
//
// Role names compare case-insensitively through their normalized
// (upper-cased) form. Two roles, Admin and User, are bootstrapped at
// startup by EnsureDefaultRoles.
//
// Tokens are self-contained. Nothing about an issued token is stored, so
// a role granted after issuance is only visible in the next token.
package auth
