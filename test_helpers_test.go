package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/appcache-hub/appcache-hub/internal/config"
)

var repoRoot string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return
	}
	dir := filepath.Dir(file)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			repoRoot = dir
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func projectRoot(t *testing.T) string {
	t.Helper()
	if repoRoot == "" {
		t.Fatal("无法定位项目根目录")
	}
	return repoRoot
}

func configFixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "internal", "config", "testdata", name)
}

func loadConfig(t *testing.T, path string) *config.Config {
	t.Helper()
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	return cfg
}

func loadFixture(t *testing.T) *config.Config {
	t.Helper()
	return loadConfig(t, configFixture(t, "valid.toml"))
}

// writeSiteConfig 在临时目录中生成 WebRoot 与配置文件，返回配置路径与 WebRoot。
func writeSiteConfig(t *testing.T) (string, string) {
	t.Helper()
	webRoot := filepath.Join(t.TempDir(), "public")
	if err := os.MkdirAll(webRoot, 0o755); err != nil {
		t.Fatalf("创建 WebRoot 失败: %v", err)
	}
	configPath := writeConfigFile(t, fmt.Sprintf(`
ListenPort = 5000
LogLevel = "error"
WebRoot = "%s"

[[Filter]]
Name = "site"
Actions = ["home", "about"]

[[Page]]
Name = "home"
Route = "/"
File = "index.html"

[[Page]]
Name = "about"
Route = "/about"
File = "about.html"
`, webRoot))
	return configPath, webRoot
}

// useBufferWriters 在测试期间将 stdOut/stdErr 替换为内存缓冲，便于断言 CLI 输出。
func useBufferWriters(t *testing.T) {
	t.Helper()

	prevOut, prevErr := stdOut, stdErr
	stdOut = &bytes.Buffer{}
	stdErr = &bytes.Buffer{}

	t.Cleanup(func() {
		stdOut = prevOut
		stdErr = prevErr
	})
}

func stdOutBuffer() *bytes.Buffer {
	buf, _ := stdOut.(*bytes.Buffer)
	return buf
}

func stdErrBuffer() *bytes.Buffer {
	buf, _ := stdErr.(*bytes.Buffer)
	return buf
}
