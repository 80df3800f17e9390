package lang

import "fmt"

// Rust is the adapter for the official Rust SDK.
var Rust = &Adapter{
	Name:          "rust",
	Repo:          "modelcontextprotocol/rust-sdk",
	Image:         "rust:1.75-slim",
	DefaultPort:   8032,
	ReadyPath:     "/health",
	ServerCommand: "cargo run --example basic_server",
	ClientCommand: "cargo run --example basic_client",
	PackageSpec: func(version string) string {
		return fmt.Sprintf(`rmcp = "=%s"`, version)
	},
}
