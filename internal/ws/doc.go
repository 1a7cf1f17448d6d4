// Package ws implements the channel.Transport interface on top of
// gorilla/websocket. Terminal data travels as raw text frames in both
// directions; no JSON envelope is involved.
package ws
