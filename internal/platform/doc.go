// Package platform talks to the commerce platform's OAuth token endpoint: the token-exchange
// grant that trades a session token for an access token, and the refresh-token grant.
//
// All failures are classified into [ErrSubjectTokenInvalid] (re-authenticate) or
// [ErrTransient] (surface as an internal error, keep the stored session).
package platform
