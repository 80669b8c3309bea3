// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes noteflow tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/noteflow/internal/export"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/workspace"
)

const contractURI = "noteflow://note-format"

// Server wraps the MCP server with tools acting on one workspace.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
}

// New creates a new MCP server with all noteflow tools registered.
func New(ws *workspace.Workspace, version string) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"noteflow",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, or ordered by title, or filtered by tags."),
		mcp.WithString("sort", mcp.Description("date (default), title or tags")),
		mcp.WithString("order", mcp.Description("asc or desc")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names, used with sort=tags")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note with its title, date, tags and markdown content."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Unknown tags are added to the tag registry."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the tag registry with colors."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("summarize_note",
		mcp.WithDescription("Summarize or restructure a note with the configured model. "+
			"Replace and insert modes change the note; sandbox modes only return the result."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("mode", mcp.Description("Generation mode, default summarize-sandbox")),
	), s.summarizeNote)

	s.mcp.AddTool(mcp.NewTool("export_note",
		mcp.WithDescription("Render a note as markdown (with frontmatter), plain text or HTML."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("format", mcp.Description("md (default), txt or html")),
	), s.exportNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the markdown document format used for export and import."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format",
			mcp.WithResourceDescription("Markdown document format used for export and import."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func optString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type noteSummary struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Date  string       `json:"date"`
	Tags  []models.Tag `json:"tags"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := models.SortOptions{Mode: models.SortByDate, Descending: true}
	if mode := optString(req, "sort"); mode != "" {
		opts.Mode = models.SortMode(mode)
		opts.Descending = false
	}
	switch optString(req, "order") {
	case "asc":
		opts.Descending = false
	case "desc":
		opts.Descending = true
	}
	opts.SelectedTags = splitList(optString(req, "tags"))

	notes, err := s.ws.ListNotes(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]noteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, noteSummary{ID: n.ID, Title: n.Title, Date: n.Date.Format("2006-01-02"), Tags: n.Tags})
	}
	return jsonResult(out)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.ws.Note(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.ws.CreateNote(ctx, title, splitList(optString(req, "tags")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content := optString(req, "content"); content != "" {
		note, err = s.ws.UpdateNote(ctx, note.ID, workspace.Update{Content: &content})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ws.Store.Tags())
}

func (s *Server) summarizeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := models.ModeSummarizeSandbox
	if m := optString(req, "mode"); m != "" {
		mode = models.GenerationMode(m)
	}
	if !mode.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode: %s", mode)), nil
	}
	if _, err := s.ws.OpenNote(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err := s.ws.Assist.SetMode(mode); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.ws.Generate(ctx, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !mode.TargetsSandbox() {
		if err := s.ws.FlushDraft(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(result), nil
}

func (s *Server) exportNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := export.ParseFormat(optString(req, "format"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if f != export.Markdown && f != export.Text && f != export.HTML {
		return mcp.NewToolResultError(fmt.Sprintf("format %s is binary; use the HTTP export endpoint", f)), nil
	}
	data, _, err := s.ws.Export(id, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
