package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	RouteUsers       = RouteApiV1 + "/users"
	RouteUser        = RouteUsers + "/:user_id"
	RouteEmailExists = RouteUsers + "/exists"

	// ops
	RouteHealth  = RouteApiV1 + "/healthz"
	RouteMetrics = RouteApiV1 + "/metrics"
)
