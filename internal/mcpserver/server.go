// Package mcpserver exposes the generation tools over the Model Context
// Protocol, served statelessly over streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maauso/veogen/internal/job"
	"github.com/maauso/veogen/internal/tools"
)

// MCP tool names.
const (
	GenerateVideoTool = "generate_video"
	VideoStatusTool   = "get_video_status"
	ListRecentTool    = "list_recent_videos"
	TaskStatusTool    = "get_task_status"
)

// GenerateVideoArgs are the arguments of generate_video. FormatType and
// AllowPeople are accepted as aliases of AspectRatio and PersonGeneration.
type GenerateVideoArgs struct {
	Prompt           string `json:"prompt" jsonschema:"description of the video to generate"`
	AspectRatio      string `json:"aspect_ratio,omitempty" jsonschema:"16:9, 9:16 or 1:1 (landscape, portrait and square also work)"`
	PersonGeneration string `json:"person_generation,omitempty" jsonschema:"dont_allow or allow_adult"`
	Variations       int    `json:"variations,omitempty" jsonschema:"number of variations to generate"`
	Style            string `json:"style,omitempty" jsonschema:"optional prompt style: cinematic, documentary, artistic, commercial, realistic, dramatic, minimalist or vibrant"`
	NegativePrompt   string `json:"negative_prompt,omitempty" jsonschema:"what the video should avoid"`
	ImagePath        string `json:"image_path,omitempty" jsonschema:"local image to animate"`
	Extended         bool   `json:"extended,omitempty" jsonschema:"wait with the extended poll budget"`
	FormatType       string `json:"format_type,omitempty" jsonschema:"alias of aspect_ratio"`
	AllowPeople      string `json:"allow_people,omitempty" jsonschema:"alias of person_generation (yes or no)"`
}

func (in GenerateVideoArgs) params() tools.Params {
	p := tools.Params{
		"prompt":            in.Prompt,
		"aspect_ratio":      in.AspectRatio,
		"format_type":       in.FormatType,
		"person_generation": in.PersonGeneration,
		"allow_people":      in.AllowPeople,
		"style":             in.Style,
		"negative_prompt":   in.NegativePrompt,
		"image_path":        in.ImagePath,
		"extended":          in.Extended,
	}
	if in.Variations != 0 {
		p["variations"] = in.Variations
	}
	return p
}

// VideoStatusArgs are the arguments of get_video_status.
type VideoStatusArgs struct {
	VideoPath string `json:"video_path" jsonschema:"filename, path or URL of a generated video"`
}

// ListRecentArgs are the arguments of list_recent_videos.
type ListRecentArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of videos to list"`
}

// TaskStatusArgs are the arguments of get_task_status.
type TaskStatusArgs struct {
	TaskID string `json:"task_id" jsonschema:"id returned by generate_video in async mode"`
}

// New creates an MCP server with every tool registered on toolbox.
func New(toolbox *tools.Toolbox, version string, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "veogen", Version: version}, nil)

	generateDesc := "Generate video variations from a text prompt and save them to the output directory."
	if toolbox.Async() {
		generateDesc = "Start generating video variations from a text prompt. Returns a task id for get_task_status."
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        GenerateVideoTool,
		Description: generateDesc,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in GenerateVideoArgs) (*mcp.CallToolResult, any, error) {
		return respond(toolbox.Call(ctx, tools.GenerateVideo, in.params()))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        VideoStatusTool,
		Description: "Check whether a generated video exists and report its size.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in VideoStatusArgs) (*mcp.CallToolResult, any, error) {
		return respond(toolbox.Call(ctx, tools.VideoStatusTool, tools.Params{"video_path": in.VideoPath}))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ListRecentTool,
		Description: "List the most recently generated videos, newest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ListRecentArgs) (*mcp.CallToolResult, any, error) {
		p := tools.Params{}
		if in.Limit > 0 {
			p["limit"] = in.Limit
		}
		return respond(toolbox.Call(ctx, tools.ListRecentTool, p))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        TaskStatusTool,
		Description: "Report the status and result of a background generation task.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in TaskStatusArgs) (*mcp.CallToolResult, any, error) {
		return respond(toolbox.Call(ctx, tools.TaskStatusTool, tools.Params{"task_id": in.TaskID}))
	})

	logger.Info("mcp tools registered", slog.Bool("async", toolbox.Async()))
	return server
}

// NewHandler serves server over streamable HTTP without sessions.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

// respond renders a tool output as JSON text. Tool failures and
// unsuccessful generations are flagged with IsError.
func respond(out any, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, nil, nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}

	res := &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(data)}}}
	if r, ok := out.(job.Result); ok && !r.Success {
		res.IsError = true
	}
	return res, nil, nil
}
