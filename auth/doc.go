// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides password hashing, session tokens and admin key checks.

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword("s3cret-pass")
	err = auth.CheckPassword(hash, candidate) // ErrInvalidCredentials on mismatch

# Sessions

A SessionManager signs HS256 JWTs carrying the user id (sub) and username:

	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL).WithAccounts(st)
	err := sessions.Login(w, user)        // sets the session cookie
	user, err := sessions.Authenticate(r) // reads and verifies it
	sessions.Logout(w)                    // expires the cookie

Tokens expire after the configured TTL. With WithAccounts, Authenticate also
checks that the account still exists and reports ErrNoSession when it does not.

# Admin Key

The admin API is guarded by a single configured key, compared in constant time:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminKey)
*/
package auth
