// Package routes holds the application's page routes and their templates.
package routes
