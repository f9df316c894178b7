// Package vault implements the on-disk and on-wire formats of seedvault.
//
// Two formats exist:
//   - Records: "base64(iv):base64(ciphertext)" (v1, non-auth key) or
//     "v2:base64(iv):base64(ciphertext)" (v2, auth-gated key). The version
//     is inferred from the number of parts and the tag.
//   - Envelopes: JSON {"v":1,"salt":[...],"iv":[...],"data":[...]} wrapping a
//     PIN-protected seed. Byte fields are arrays of integers, not base64.
//
// Only envelope version 1 is accepted.
package vault
