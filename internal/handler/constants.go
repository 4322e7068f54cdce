package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteCreate is the post creation route.
	RouteCreate = "/create"
	// RouteUpdate is the post update route.
	RouteUpdate = "/{id}/update"
	// RouteDelete is the post delete route.
	RouteDelete = "/{id}/delete"

	// RouteRegister is the registration route (under /auth).
	RouteRegister = "/register"
	// RouteLogin is the login route (under /auth).
	RouteLogin = "/login"
	// RouteLogout is the logout route (under /auth).
	RouteLogout = "/logout"
)

// Redirect target constants.
const (
	redirectLogin    = "/auth/login"
	redirectRegister = "/auth/register"
	redirectIndex    = "/"
)
