// Package bridge exposes the vault manager and item store over a line
// protocol: one JSON request per line in, one JSON response per line out.
//
//	{"id":1,"method":"unlock","params":{"vault":{"v":1,...},"pin":"1234"}}
//	{"id":1,"result":{"unlocked":true,"expiresAtMs":1700000000000}}
//
// Failures carry the error kind as code:
//
//	{"id":2,"error":{"code":"SessionExpired","message":"session expired"}}
//
// Requests are handled one at a time in arrival order.
package bridge
