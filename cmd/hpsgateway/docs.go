package main

// General API documentation for swaggo. Run `swag init -g cmd/hpsgateway/docs.go -o docs` to regenerate.
//
// @title           hpsgateway API
// @version         1.0
// @description     Gateway in front of the layout-parsing inference backend: admission control, deadlines, layered health and page restructuring.
//
// @contact.name   hpsgateway maintainers
//
// @license.name   Apache-2.0
// @license.url    https://www.apache.org/licenses/LICENSE-2.0
//
// @BasePath  /
//
// @schemes http
