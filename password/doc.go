// Package password verifies and produces Argon2id password hashes.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Salt and key are unpadded base64 on output; padded input is also accepted.
//
// This package never stores or logs passwords. Looking up the stored hash is
// the caller's job.
package password
