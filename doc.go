// Package famfin is a client for a family personal-finance API.
//
// It reads and writes the family accounts, transactions and investment
// holdings of the signed-in user. The packages below do the heavy lifting:
//   - api: the HTTP adapter. It unwraps the response envelope, attaches the
//     bearer token and reports typed failures.
//   - session: the persisted authentication session, rehydrated at startup.
//   - query: a keyed cache of remote resources with request de-duplication
//     and invalidation.
//
// Client ties them together. Every read goes through the cache under a
// resource key (KeyAccounts, KeyTransactions, ...) and every write
// invalidates the keys whose server state it changes, so that live
// observers refetch them.
//
// This package serves as the foundation of the `famfin` command-line tool.
package famfin
