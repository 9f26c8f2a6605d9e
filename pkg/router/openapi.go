package router

import (
	"encoding/json"
	"fmt"
	"strings"
)

const bearerAuthScheme = "bearerAuth"

// RegisterResponse adds a custom response pattern that can be referenced in routes
func (dr *DocRouter) RegisterResponse(name string, response map[string]any) {
	dr.customResponses[name] = response
}

// RegisterRouteResponse associates a named response with a specific route and status code
func (dr *DocRouter) RegisterRouteResponse(routePath, method, statusCode, responseName string) {
	id := routeID(method, routePath)

	if _, exists := dr.routeResponses[id]; !exists {
		dr.routeResponses[id] = make(map[string]string)
	}

	dr.routeResponses[id][statusCode] = responseName
}

// OpenAPI creates and returns the OpenAPI document describing every
// registered route
func (dr *DocRouter) OpenAPI() map[string]any {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       dr.title,
			"description": dr.description,
			"version":     dr.version,
		},
		"paths": dr.generatePaths(),
	}

	// components last: paths register the schemas they reference
	doc["components"] = dr.generateComponents()

	if len(dr.servers) > 0 {
		servers := make([]any, 0, len(dr.servers))
		for _, server := range dr.servers {
			entry := map[string]any{"url": server.URL}
			if server.Description != "" {
				entry["description"] = server.Description
			}
			servers = append(servers, entry)
		}
		doc["servers"] = servers
	}

	if len(dr.tags) > 0 {
		tags := make([]any, 0, len(dr.tags))
		for _, tag := range dr.tags {
			tags = append(tags, map[string]any{
				"name":        tag.Name,
				"description": tag.Description,
			})
		}
		doc["tags"] = tags
	}

	return doc
}

// OpenAPIJSON returns the indented JSON encoding of OpenAPI
func (dr *DocRouter) OpenAPIJSON() ([]byte, error) {
	return json.MarshalIndent(dr.OpenAPI(), "", "  ")
}

func routeID(method, path string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(method), path)
}

// extractPathParams gets path parameters from a URL path
func extractPathParams(path string) []string {
	var params []string

	for _, part := range strings.Split(path, "/") {
		if len(part) > 2 && part[0] == '{' && part[len(part)-1] == '}' {
			// {name...} wildcards document as plain {name}
			params = append(params, strings.TrimSuffix(part[1:len(part)-1], "..."))
		}
	}

	return params
}

func (dr *DocRouter) generateParameters(route RouteInfo) []any {
	var parameters []any

	for _, param := range extractPathParams(route.Path) {
		parameters = append(parameters, map[string]any{
			"name":        param,
			"in":          "path",
			"required":    true,
			"schema":      map[string]any{"type": "string"},
			"description": fmt.Sprintf("%s parameter", param),
		})
	}

	for _, param := range route.QueryParams {
		parameters = append(parameters, map[string]any{
			"name":        param.Name,
			"in":          "query",
			"required":    param.Required,
			"schema":      map[string]any{"type": "string"},
			"description": param.Description,
		})
	}

	return parameters
}

// generatePaths creates the paths section of the OpenAPI document
func (dr *DocRouter) generatePaths() map[string]any {
	paths := map[string]any{}

	for _, route := range dr.routes {
		path := strings.ReplaceAll(route.Path, "...}", "}")

		if _, exists := paths[path]; !exists {
			paths[path] = map[string]any{}
		}

		pathItem := paths[path].(map[string]any)
		method := strings.ToLower(route.Method)

		operation := map[string]any{
			"summary":     route.Name,
			"description": route.Description,
			"operationId": operationID(method, path),
			"responses":   dr.generateResponses(route),
		}

		if parameters := dr.generateParameters(route); len(parameters) > 0 {
			operation["parameters"] = parameters
		}

		if len(route.Tags) > 0 {
			operation["tags"] = route.Tags
		}

		if route.Secured {
			operation["security"] = []any{
				map[string]any{bearerAuthScheme: []string{}},
			}
		}

		if route.RequestType != nil && (method == "post" || method == "put" || method == "patch") {
			operation["requestBody"] = dr.generateRequestBody(route)
		}

		pathItem[method] = operation
	}

	return paths
}

// operationID turns "get" and "/todos/{id}" into "get_todos_id"
func operationID(method, path string) string {
	replacer := strings.NewReplacer("/", "_", "{", "", "}", "", "-", "_")
	return method + replacer.Replace(strings.TrimSuffix(path, "/"))
}

// generateResponses creates response documentation
func (dr *DocRouter) generateResponses(route RouteInfo) map[string]any {
	responses := map[string]any{}

	for statusCode, routeResponse := range route.Responses {
		content := map[string]any{}

		if routeResponse.Schema != nil {
			content["schema"] = dr.schemaRef(routeResponse.Schema)
		}

		if len(routeResponse.Examples) > 0 {
			examples := map[string]any{}
			for _, example := range routeResponse.Examples {
				examples[example.ContentType] = map[string]any{
					"value": example.Value,
				}
			}
			content["examples"] = examples
		}

		response := map[string]any{
			"description": routeResponse.Description,
		}
		if len(content) > 0 {
			response["content"] = map[string]any{
				"application/json": content,
			}
		}

		responses[statusCode] = response
	}

	success := route.SuccessStatus
	if success == "" {
		success = "200"
	}

	if _, exists := responses[success]; !exists {
		response := map[string]any{
			"description": "Successful response",
		}
		if route.ResponseType != nil {
			response["content"] = map[string]any{
				"application/json": map[string]any{
					"schema": dr.schemaRef(route.ResponseType),
				},
			}
		}
		responses[success] = response
	}

	if routeResps, exists := dr.routeResponses[routeID(route.Method, route.Path)]; exists {
		for statusCode, responseName := range routeResps {
			if _, exists := responses[statusCode]; exists {
				continue
			}

			responses[statusCode] = map[string]any{
				"$ref": "#/components/responses/" + responseName,
			}
		}
	}

	return responses
}

// generateRequestBody creates request body documentation
func (dr *DocRouter) generateRequestBody(route RouteInfo) map[string]any {
	return map[string]any{
		"description": fmt.Sprintf("request body for %s", route.Name),
		"required":    true,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": dr.schemaRef(route.RequestType),
			},
		},
	}
}

// generateComponents creates reusable components
func (dr *DocRouter) generateComponents() map[string]any {
	components := map[string]any{
		"schemas": dr.schemaRegistry.getSchemas(),
	}

	if len(dr.customResponses) > 0 {
		components["responses"] = dr.customResponses
	}

	if dr.useBearerAuth {
		components["securitySchemes"] = map[string]any{
			bearerAuthScheme: map[string]any{
				"type":   "http",
				"scheme": "bearer",
			},
		}
	}

	return components
}
