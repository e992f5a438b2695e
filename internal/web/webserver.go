// Package web provides the HTTP server and web interface for go-pugsite
package web

/*

	### **Core Files:**
	1. **`webserver_core_routes.go`** - Server setup, middleware order, route table
	2. **`web_utils.go`** - Template data and rendering helpers
	3. **`embedded_static.go`** - Embedded assets and the static file middleware
	4. **`web_maintenance.go`** - Site-wide maintenance gate

	### **Page Handler Files:**
	5. **`web_homePage.go`** - "/"
	6. **`web_aboutPage.go`** - "/about"
	7. **`web_projectsPage.go`** - "/projects"

	### **API File:**
	8. **`web_apiHandlers.go`** - Endpoints that return JSON

*/
