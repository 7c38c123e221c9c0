// Package mcp implements the Model Context Protocol (MCP) server for voicerag.
//
// The server gives a voice agent's LLM loop five tools over its document
// collections:
//   - init_collection: create a conversation's collection from a folder
//   - add_documents: index documents into it
//   - remove_documents: drop every chunk of some documents
//   - query_documents: fetch the chunks most relevant to a question
//   - collection_status: report size, sources and embedder
//
// Every tool takes an optional "conversation" argument naming the collection;
// without it the server's default conversation is used.
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started with:
//
//	voicerag serve --conversation chat_id_1
//
// # Tool: query_documents
//
//	Request:
//	{
//	  "name": "query_documents",
//	  "arguments": {
//	    "query": "how long is the warranty",
//	    "k": 3
//	  }
//	}
//
//	Response:
//	{
//	  "conversation": "chat_id_1",
//	  "count": 1,
//	  "results": [
//	    {
//	      "rank": 1,
//	      "id": "5d41...c592_0",
//	      "source": "/data/docs/warranty.pdf",
//	      "distance": 0.21,
//	      "document": "The warranty covers two years ..."
//	    }
//	  ]
//	}
//
// A populated collection returns at most k (and never more than five)
// chunks; an empty one returns at most one.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "voicerag": {
//	      "command": "/usr/local/bin/voicerag",
//	      "args": ["serve"],
//	      "env": {
//	        "VOICERAG_EMBEDDING_GROUP": "hosted",
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handler failures are returned as *MCPError values:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Collection not initialized
//   - -32002: Collection already initialized
//   - -32003: Another write is in progress for the conversation
//   - -32004: Empty query
//   - -32005: Embedding provider failure
//
// # Logging
//
// The server logs through log/slog to stderr; stdout carries the protocol.
package mcp
