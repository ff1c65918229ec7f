// Command aquaportal is the terminal and web client for the water delivery
// backend.
//
//	aquaportal login --role supplier --email ravi@example.com
//	aquaportal supplier orders --view incoming
//	aquaportal supplier accept 66a1f0c2...
//	aquaportal watch          # stream push events and notices
//	aquaportal serve          # web UI on 127.0.0.1:APP_PORT
//	aquaportal routes --http  # list web routes
//
// The session is restored from the configured driver (file or redis) on every
// invocation, so a login in one shell is visible to the next.
package main
