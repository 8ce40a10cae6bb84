package server

import (
	"io"

	"github.com/codehubbers/hubbergram/pkg/model"
	"github.com/codehubbers/hubbergram/pkg/rbac"
	"github.com/codehubbers/hubbergram/pkg/wire"
)

type accessLevel int

const (
	accessPublic accessLevel = iota
	accessUser
	accessAdmin
)

type routeKey struct {
	method string
	path   string
}

type route struct {
	access accessLevel
	perm   model.Permission // checked for accessAdmin routes
	handle func(w io.Writer, client *Client, req *wire.Request) error
}

// router maps requests to handlers. Access control happens here, in one
// place, before any handler runs.
type router struct {
	server *Server
	routes map[routeKey]route
}

func newRouter(s *Server) *router {
	r := &router{server: s}
	r.routes = map[routeKey]route{
		{"GET", "/"}:              {access: accessPublic, handle: s.handleBanner},
		{"POST", "/api/register"}: {access: accessPublic, handle: s.handleRegister},
		{"POST", "/api/login"}:    {access: accessPublic, handle: s.handleLogin},
		{"POST", "/api/message"}:  {access: accessUser, handle: s.handleSendMessage},
		{"POST", "/api/location"}: {access: accessUser, handle: s.handleUpdateLocation},
		{"GET", "/api/messages"}:  {access: accessUser, handle: s.handleGetMessages},
		{"GET", "/api/locations"}: {access: accessAdmin, perm: model.PermViewLocations, handle: s.handleGetLocations},
		{"GET", "/api/users"}:     {access: accessAdmin, perm: model.PermListUsers, handle: s.handleGetUsers},
	}
	return r
}

// dispatch routes one parsed request and writes the response.
func (r *router) dispatch(w io.Writer, client *Client, req *wire.Request) error {
	// CORS preflight succeeds on any path.
	if req.Method == "OPTIONS" {
		return wire.WriteEmpty(w, 200)
	}

	if req.Method != "GET" && req.Method != "POST" {
		return wire.WriteResponse(w, 405, "text/plain", []byte("Method not allowed"))
	}

	rt, ok := r.routes[routeKey{req.Method, req.Path}]
	if !ok {
		return wire.WriteError(w, 404, "Endpoint not found")
	}

	switch rt.access {
	case accessUser:
		if !client.Authenticated {
			return wire.WriteError(w, 401, "Not authenticated")
		}
	case accessAdmin:
		// Deliberately 403 even when unauthenticated: admin endpoints do
		// not reveal whether credentials would have helped.
		if !client.Authenticated || !rbac.HasPermission(client.Role, rt.perm) {
			return wire.WriteError(w, 403, "Admin access required")
		}
	}

	return rt.handle(w, client, req)
}
