package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           pland API
// @version         1.0
// @description     HTTP API for GPU memory capacity planning of LLM serving workloads.
//
// @contact.name   pland maintainers
// @contact.url    https://github.com/your-org/pland
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
