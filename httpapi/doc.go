// Package httpapi exposes the session engine over HTTP.
//
//	POST /login    {email, password} -> access token in the Authorization header, refresh cookie
//	POST /refresh  refresh cookie -> rotated header and cookie
//	POST /logout   bearer access token -> 204, cookie cleared
//	GET  /me       guarded; returns the authenticated principal
//	GET  /healthz  token store ping
//	GET  /metrics  optional exposition handler supplied by the caller
//
// Every JSON body uses the {isSuccess, code, message, result} envelope.
package httpapi
