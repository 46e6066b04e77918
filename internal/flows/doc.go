// Package flows contains pure-function orchestrators for the credential lifecycle.
//
// Each flow function (RunTokenExchange, RunRefresh, RunEnsureFresh) accepts a typed
// dependency struct and returns a result carrying either the produced sessions or a
// failure kind the root package maps onto its public errors.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the platform client and the session store. They do
// NOT own either resource; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goShopAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
