// Package session issues and verifies the tokens that prove a user already
// went through a successful login.
//
// Tokens are HS256 JWTs carrying the subject id, the issue time, the expiry
// and a random token id. Nothing is kept on the server: a token is valid as
// long as the signature matches and it did not expire yet.
//
// That also means logout cannot kill a token that leaked somewhere else,
// logout only asks the browser to drop its cookie. A token lives through
//
//	Unissued -> Valid (until exp) -> Expired
//
// and there is no Revoked state, unless the issuer is given a Revocations
// registry, in which case tokens recorded there are rejected until they would
// have expired anyway.
//
// The signing key is derived from a shared secret with HKDF, so operators can
// hand in any non-empty passphrase.
package session
