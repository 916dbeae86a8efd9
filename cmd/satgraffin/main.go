package main

// @title           Satgraffin API
// @version         1.0
// @description     Question answering over the MOSDAC website. Pages are indexed on demand when a question is routed to them.

// @host      localhost:8000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token from /api/v1/admin/login. Format: "Bearer {token}"

var version = "dev"

func main() {
	Execute()
}
