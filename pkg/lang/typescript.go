package lang

import "fmt"

// TypeScript is the adapter for the official TypeScript SDK.
var TypeScript = &Adapter{
	Name:          "typescript",
	Repo:          "modelcontextprotocol/typescript-sdk",
	Image:         "node:20-slim",
	DefaultPort:   8016,
	ReadyPath:     "/health",
	ServerCommand: "npm run start:server",
	ClientCommand: "npm run start:client",
	PackageSpec: func(version string) string {
		return fmt.Sprintf("@modelcontextprotocol/sdk@%s", version)
	},
}
