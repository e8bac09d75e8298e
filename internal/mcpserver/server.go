// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes texrelink operations as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/placement"
	"github.com/starford/texrelink/internal/relinkservice"
	"github.com/starford/texrelink/internal/vcolor"
)

const rulesURI = "texrelink://matching-rules"

// Server wraps the MCP server with texrelink tools.
type Server struct {
	mcp *server.MCPServer
	svc *relinkservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *relinkservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"texrelink",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("relink_textures",
		mcp.WithDescription("Repair broken texture references by searching the library for files "+
			"with the same name. Read texrelink://matching-rules for the exact rules."),
		mcp.WithString("root", mcp.Description("Library root to search (defaults to the configured root)")),
		mcp.WithString("extensions", mcp.Description("Comma-separated allowed extensions, e.g. png,dds")),
		mcp.WithString("base_dir", mcp.Description("Directory relative paths are resolved against")),
		mcp.WithBoolean("stem_fallback", mcp.Description("Match by name without extension when the exact name is absent")),
		mcp.WithBoolean("dry_run", mcp.Description("Report what would change without saving")),
	), s.relinkTextures)

	s.mcp.AddTool(mcp.NewTool("list_missing_assets",
		mcp.WithDescription("List registered references whose path does not resolve to a file."),
	), s.listMissing)

	s.mcp.AddTool(mcp.NewTool("register_asset",
		mcp.WithDescription("Register or update an asset reference."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique reference name")),
		mcp.WithString("path", mcp.Description("Stored file path")),
		mcp.WithBoolean("embedded", mcp.Description("Packed into the project file; never relinked")),
	), s.registerAsset)

	s.mcp.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List all registered asset references."),
	), s.listAssets)

	s.mcp.AddTool(mcp.NewTool("format_placement",
		mcp.WithDescription("Format a position and a w-first quaternion as map placement strings."),
		mcp.WithNumber("x", mcp.Required()),
		mcp.WithNumber("y", mcp.Required()),
		mcp.WithNumber("z", mcp.Required()),
		mcp.WithNumber("qw", mcp.Description("Rotation w (default 1)")),
		mcp.WithNumber("qx"),
		mcp.WithNumber("qy"),
		mcp.WithNumber("qz"),
		mcp.WithArray("portal",
			mcp.Description(`Optional portal of exactly four vertices {"x":..,"y":..,"z":..}`),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.formatPlacement)

	s.mcp.AddTool(mcp.NewTool("average_color",
		mcp.WithDescription("Average vertex colours and return the result with its #RRGGBB form."),
		mcp.WithArray("colors", mcp.Required(),
			mcp.Description(`Colours as objects {"r":0-1,"g":0-1,"b":0-1}`),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.averageColor)

	s.mcp.AddResource(
		mcp.NewResource(rulesURI, "Matching Rules",
			mcp.WithResourceDescription("How relink passes find replacement files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) relinkTextures(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r := relinkservice.Request{
		Root:    req.GetString("root", ""),
		BaseDir: req.GetString("base_dir", ""),
		DryRun:  req.GetBool("dry_run", false),
	}
	if exts := req.GetString("extensions", ""); exts != "" {
		r.Extensions = splitList(exts)
	}
	if _, ok := req.GetArguments()["stem_fallback"]; ok {
		v := req.GetBool("stem_fallback", true)
		r.StemFallback = &v
	}

	res, err := s.svc.Relink(ctx, r)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) listMissing(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListMissing(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no missing assets"), nil
	}
	lines := make([]string, len(list))
	for i, a := range list {
		lines[i] = fmt.Sprintf("%s\t%s", a.Name, a.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) registerAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.RegisterAsset(ctx, models.AssetReference{
		Name:     name,
		Path:     req.GetString("path", ""),
		Embedded: req.GetBool("embedded", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("registered: %s", a.Name)), nil
}

func (s *Server) listAssets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListAssets(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list), nil
}

func (s *Server) formatPlacement(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := placement.Placement{
		Position: placement.Vec3{
			X: req.GetFloat("x", 0),
			Y: req.GetFloat("y", 0),
			Z: req.GetFloat("z", 0),
		},
		Rotation: placement.Quat{
			W: req.GetFloat("qw", 1),
			X: req.GetFloat("qx", 0),
			Y: req.GetFloat("qy", 0),
			Z: req.GetFloat("qz", 0),
		},
	}
	out := map[string]string{
		"position": placement.FormatPosition(p.Position),
		"rotation": placement.FormatRotation(p.Rotation),
		"xml":      placement.FormatXML(p),
	}
	if raw, ok := req.GetArguments()["portal"]; ok {
		var verts []placement.Vec3
		if err := decodeArg(raw, &verts); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("portal: %v", err)), nil
		}
		if len(verts) > 0 {
			portal, err := placement.NewPortal(verts...)
			if err == nil {
				out["portal"], err = portal.FormatAll()
			}
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}
	return jsonResult(out), nil
}

// decodeArg round-trips a generic JSON argument into v.
func decodeArg(raw any, v any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}

func (s *Server) averageColor(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["colors"]
	if !ok {
		return mcp.NewToolResultError("colors is required"), nil
	}
	var colors []vcolor.Color
	if err := decodeArg(raw, &colors); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("colors: %v", err)), nil
	}
	avg, err := vcolor.Average(colors)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"color": avg, "hex": vcolor.Hex(avg)}), nil
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      rulesURI,
			MIMEType: "text/markdown",
			Text:     MatchingRules,
		},
	}, nil
}
