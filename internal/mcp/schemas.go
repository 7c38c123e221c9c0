package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// conversationProperty is shared by every tool
func conversationProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Conversation identity whose collection to use (defaults to the server's conversation)",
	}
}

func pathsProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "string",
		},
		"minItems": 1,
	}
}

// initCollectionTool returns the tool definition for init_collection
func initCollectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "init_collection",
		Description: "Create the conversation's document collection and index the files of a folder. An empty or unreadable folder creates an empty collection.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dir": map[string]interface{}{
					"type":        "string",
					"description": "Folder whose files (.pdf, .docx, .md, .xlsx, .txt) seed the collection; subfolders are not read",
				},
				"conversation": conversationProperty(),
			},
			Required: []string{"dir"},
		},
	}
}

// addDocumentsTool returns the tool definition for add_documents
func addDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_documents",
		Description: "Convert, chunk and index documents. Re-adding a file replaces its chunks.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths":        pathsProperty("Paths of the documents to add"),
				"conversation": conversationProperty(),
			},
			Required: []string{"paths"},
		},
	}
}

// removeDocumentsTool returns the tool definition for remove_documents
func removeDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_documents",
		Description: "Remove every indexed chunk of the given documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths":        pathsProperty("Paths of the documents to remove, exactly as they were added"),
				"conversation": conversationProperty(),
			},
			Required: []string{"paths"},
		},
	}
}

// queryDocumentsTool returns the tool definition for query_documents
func queryDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "query_documents",
		Description: "Find the document chunks most relevant to a question, ranked by cosine distance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Question or phrase to look up",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to return (1-5)",
					"default":     5,
					"minimum":     1,
					"maximum":     5,
				},
				"max_distance": map[string]interface{}{
					"type":        "number",
					"description": "Drop chunks farther than this cosine distance (0-2, 0 disables)",
					"minimum":     0.0,
					"maximum":     2.0,
				},
				"conversation": conversationProperty(),
			},
			Required: []string{"query"},
		},
	}
}

// collectionStatusTool returns the tool definition for collection_status
func collectionStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "collection_status",
		Description: "Report whether the conversation's collection exists, its size, its sources and its embedder",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"conversation": conversationProperty(),
			},
		},
	}
}
