// Package client is the gRPC client of the webxfer transfer and admin
// services. It translates status codes into the sentinel errors callers
// match with errors.Is.
package client
