// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监听数据目录，目标文件被写入或新建且修改时间更新时回调
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	targets  map[string]struct{} // 空表示目录内任意文件
	lastFile string
	lastMod  map[string]time.Time
	mu       sync.Mutex
}

func NewFileMonitor(dir string, files ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	targets := make(map[string]struct{}, len(files))
	for _, f := range files {
		targets[filepath.Base(f)] = struct{}{}
	}

	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		targets:  targets,
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 出错
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !m.isTarget(event.Name) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			m.mu.Lock()
			if info.ModTime().After(m.lastMod[event.Name]) {
				m.lastMod[event.Name] = info.ModTime()
				m.lastFile = event.Name
				go handler(event.Name)
			}
			m.mu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// LastFile 最近一次触发回调的文件
func (m *FileMonitor) LastFile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFile
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}

func (m *FileMonitor) isTarget(name string) bool {
	if len(m.targets) == 0 {
		return true
	}
	_, ok := m.targets[filepath.Base(name)]
	return ok
}
