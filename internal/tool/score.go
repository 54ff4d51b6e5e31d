// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/docdiff/internal/oracle"
)

// MetadataScoreSimilarity describes the score_similarity tool that an oracle
// server exposes to docdiff.
var MetadataScoreSimilarity = &mcp.Tool{
	Name: oracle.DefaultTool,
	Description: "Score how similar two text spans are and label the entities they contain. " +
		"The similarity is on a 0 to 10 scale where 10 means the texts say the same thing. " +
		"Entities are (label, span) pairs such as number, date, amount, unit or legal_ref.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text_a", "text_b"},
		"properties": map[string]interface{}{
			"text_a": map[string]interface{}{
				"type":        "string",
				"description": "Text of the unit in the old revision",
			},
			"text_b": map[string]interface{}{
				"type":        "string",
				"description": "Text of the unit in the new revision",
			},
		},
	},
}

// InputScoreSimilarity is the input for the ScoreSimilarity tool.
type InputScoreSimilarity struct {
	TextA string `json:"text_a"`
	TextB string `json:"text_b"`
}

// OutputScoreSimilarity is the output for the ScoreSimilarity tool.
type OutputScoreSimilarity struct {
	// Similarity is on a 0 to 10 scale.
	Similarity float64 `json:"similarity"`
	// Entities lists the labeled spans found in either text.
	Entities []oracle.Entity `json:"entities"`
}

// ScoreSimilarity returns a tool handler answering with the given oracle.
func ScoreSimilarity(o oracle.Oracle) func(context.Context, *mcp.CallToolRequest, InputScoreSimilarity) (*mcp.CallToolResult, OutputScoreSimilarity, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input InputScoreSimilarity) (*mcp.CallToolResult, OutputScoreSimilarity, error) {
		if input.TextA == "" && input.TextB == "" {
			return nil, OutputScoreSimilarity{}, fmt.Errorf("text_a or text_b is required")
		}

		res, err := o.Score(ctx, input.TextA, input.TextB)
		if err != nil {
			return nil, OutputScoreSimilarity{}, err
		}
		if math.IsNaN(res.Similarity) {
			return nil, OutputScoreSimilarity{}, fmt.Errorf("oracle returned no similarity")
		}

		entities := res.Entities
		if entities == nil {
			entities = []oracle.Entity{}
		}
		return nil, OutputScoreSimilarity{
			Similarity: res.Similarity,
			Entities:   entities,
		}, nil
	}
}

// Register adds the score_similarity tool backed by o to server.
func Register(server *mcp.Server, o oracle.Oracle) {
	mcp.AddTool(server, MetadataScoreSimilarity, ScoreSimilarity(o))
}
