package lang

import "fmt"

// Python is the adapter for the official Python SDK.
var Python = &Adapter{
	Name:          "python",
	Repo:          "modelcontextprotocol/python-sdk",
	Image:         "python:3.11-slim",
	DefaultPort:   8000,
	ReadyPath:     "/health",
	ServerCommand: "python -m basic_server",
	ClientCommand: "python -m basic_client",
	PackageSpec: func(version string) string {
		return fmt.Sprintf("mcp==%s", version)
	},
}
