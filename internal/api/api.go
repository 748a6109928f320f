// Package api 提供 HTTP JSON 接口：按 action 分发到扫描 / 探测 / 打开 / 删除等操作。
//
// 请求：GET 或 POST /api?action=<name>；参数可来自 query、表单或 JSON body。
// 响应：始终是 JSON 对象，包含 success 与 timestamp；失败时带 error。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/John-Robertt/mdd/internal/app/run"
	"github.com/John-Robertt/mdd/internal/config"
	"github.com/John-Robertt/mdd/internal/infra/fsx"
	"github.com/John-Robertt/mdd/internal/scan"
	"github.com/John-Robertt/mdd/internal/viewer"
)

const (
	ActionScan        = "scan"
	ActionTestPath    = "test_path"
	ActionOpenFile    = "open_file"
	ActionGetDefaults = "get_defaults"
	ActionDeleteFile  = "delete_file"
)

// TimestampLayout 是响应中 timestamp 字段的格式（本地时间）。
const TimestampLayout = "2006-01-02 15:04:05"

// maxBody 限制 JSON body 的大小（表单由 net/http 自身限制）。
const maxBody = 1 << 20

// Opener 打开文件（由 viewer.Launcher 实现）。
type Opener interface {
	Open(path string) (viewer.Result, error)
}

// Deps 是处理请求需要的协作者；零值字段使用默认实现。
type Deps struct {
	Fs      afero.Fs
	Logger  *zerolog.Logger
	History run.Recorder
	Opener  Opener
	// Delete 删除单个文件（默认 fsx.DeleteFile）。
	Delete func(path string) error
}

// Server 是 api 的 http.Handler。每个请求独立构造 Scanner，可并发服务。
type Server struct {
	eff    config.EffectiveConfig
	deps   Deps
	log    zerolog.Logger
	now    func() time.Time
	routes map[string]func(context.Context, params) (map[string]any, error)
}

// New 构造 Server。eff 提供默认扫描参数（扩展名 / 最小文件 / 深度）与 get_defaults 的内容。
func New(eff config.EffectiveConfig, deps Deps) *Server {
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = *deps.Logger
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Opener == nil {
		deps.Opener = viewer.New(eff.Viewers, log)
	}
	if deps.Delete == nil {
		deps.Delete = fsx.DeleteFile
	}
	s := &Server{
		eff:  eff,
		deps: deps,
		log:  log.With().Str("component", "api").Logger(),
		now:  time.Now,
	}
	s.routes = map[string]func(context.Context, params) (map[string]any, error){
		ActionScan:        s.handleScan,
		ActionTestPath:    s.handleTestPath,
		ActionOpenFile:    s.handleOpenFile,
		ActionGetDefaults: s.handleGetDefaults,
		ActionDeleteFile:  s.handleDeleteFile,
	}
	return s
}

// Handler 返回挂好路由的 mux：/api 为接口入口。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api", s)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		s.write(w, http.StatusMethodNotAllowed, s.failure(fmt.Errorf("不支持的请求方法：%s", r.Method)))
		return
	}

	p, err := parseParams(r)
	if err != nil {
		s.write(w, http.StatusBadRequest, s.failure(err))
		return
	}
	action := p.get("action")
	if action == "" {
		action = ActionScan
	}

	var body map[string]any
	if fn, ok := s.routes[action]; !ok {
		err = fmt.Errorf("无效的 action：%s", action)
	} else {
		body, err = fn(r.Context(), p)
	}
	if err != nil {
		body = s.failure(err)
	} else {
		body["success"] = true
		body["timestamp"] = s.now().Format(TimestampLayout)
	}
	// 与原有 Web 前端的约定：业务失败也返回 200，由 success 字段区分。
	s.write(w, http.StatusOK, body)

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.WarnLevel
	}
	s.log.WithLevel(level).Err(err).Str("method", r.Method).Str("action", action).Dur("took", time.Since(started)).Msg("api 请求")
}

func (s *Server) failure(err error) map[string]any {
	return map[string]any{
		"success":   false,
		"error":     err.Error(),
		"timestamp": s.now().Format(TimestampLayout),
	}
}

func (s *Server) write(w http.ResponseWriter, status int, body map[string]any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		s.log.Warn().Err(err).Msg("写响应失败")
	}
}

// params 合并 query、表单与 JSON body 的参数；body 优先于 query。
type params map[string][]string

func (p params) get(k string) string {
	if v := p[k]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// list 读取列表参数：支持重复键（k=a&k=b）、k[] 形式，以及单个按换行分隔的字符串。
func (p params) list(k string) []string {
	raw := append(append([]string(nil), p[k]...), p[k+"[]"]...)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func (p params) has(k string) bool {
	_, a := p[k]
	_, b := p[k+"[]"]
	return a || b
}

func parseParams(r *http.Request) (params, error) {
	p := params{}
	for k, v := range r.URL.Query() {
		p[k] = v
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return p, nil
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var m map[string]any
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
		if err := dec.Decode(&m); err != nil && err != io.EOF {
			return nil, fmt.Errorf("请求体不是合法 JSON：%w", err)
		}
		for k, v := range m {
			p[k] = jsonValues(v)
		}
		return p, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("解析表单失败：%w", err)
	}
	for k, v := range r.PostForm {
		p[k] = v
	}
	return p, nil
}

func jsonValues(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, jsonValues(e)...)
		}
		return out
	default:
		return []string{fmt.Sprint(x)}
	}
}

func (s *Server) handleScan(ctx context.Context, p params) (map[string]any, error) {
	eff := s.eff
	eff.Path = p.get("base_path")
	if p.has("ignored_paths") {
		eff.IgnoredPaths = p.list("ignored_paths")
	}
	if eff.Path == "" {
		return nil, errors.New("配置错误：缺少 base_path")
	}

	rr := run.Execute(ctx, eff, run.Deps{Fs: s.deps.Fs, Logger: &s.log, History: s.deps.History})
	if !rr.Success {
		return nil, fmt.Errorf("配置错误：%s", rr.Error)
	}
	return map[string]any{
		"id":             rr.ID,
		"scan_stats":     rr.ScanStats,
		"duplicates":     rr.Duplicates,
		"execution_time": rr.ExecutionTime,
		"issues":         rr.Issues,
		"config": map[string]any{
			"base_path":            rr.Path,
			"ignored_paths":        rr.IgnoredPaths,
			"min_file_size":        rr.Config.MinFileSize,
			"supported_extensions": rr.Config.SupportedExtensions,
		},
	}, nil
}

func (s *Server) handleTestPath(_ context.Context, p params) (map[string]any, error) {
	path := p.get("test_path")
	if path == "" {
		return nil, errors.New("缺少 test_path")
	}
	res, err := scan.Probe(s.deps.Fs, path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": res}, nil
}

func (s *Server) handleOpenFile(_ context.Context, p params) (map[string]any, error) {
	path := p.get("file_path")
	if path == "" {
		return nil, errors.New("缺少 file_path")
	}
	res, err := s.deps.Opener.Open(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": res.Message,
		"file":    res.File,
		"viewer":  res.Viewer,
	}, nil
}

func (s *Server) handleGetDefaults(_ context.Context, _ params) (map[string]any, error) {
	return map[string]any{
		"defaults": map[string]any{
			"remote_drive_path": s.eff.Path,
			"paths_to_ignore":   strings.Join(s.eff.IgnoredPaths, "\n"),
		},
	}, nil
}

func (s *Server) handleDeleteFile(_ context.Context, p params) (map[string]any, error) {
	path := p.get("file_path")
	if path == "" {
		return nil, errors.New("缺少 file_path")
	}
	if err := s.deps.Delete(path); err != nil {
		return nil, err
	}
	s.log.Info().Str("path", path).Msg("已删除文件")
	return map[string]any{
		"message": "文件已删除",
		"file":    path,
	}, nil
}

var _ Opener = (*viewer.Launcher)(nil)
