// store.go
package dashboard

import (
	"sync"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/metrics"
	"EcomInsight/src/model"
	"EcomInsight/src/processor"
)

// Loader 读取一份完整快照
type Loader func() (*model.Snapshot, error)

// Store 持有当前快照的处理器，重新加载时整体替换
type Store struct {
	mu   sync.RWMutex
	proc *processor.DataProcessor
	dcfg *config.DataConfig
}

func NewStore(dcfg *config.DataConfig) *Store {
	if dcfg == nil {
		dcfg = config.Default()
	}
	return &Store{
		proc: processor.NewDataProcessor(nil, dcfg),
		dcfg: dcfg,
	}
}

// Processor 当前处理器，调用方拿到后不受后续替换影响
func (s *Store) Processor() *processor.DataProcessor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proc
}

// Replace 校验通过后替换快照，失败时保留旧数据
func (s *Store) Replace(snap *model.Snapshot) error {
	proc := processor.NewDataProcessor(snap, s.dcfg)
	if err := proc.CleanData(); err != nil {
		metrics.RecordReload(false, 0, 0, 0)
		return err
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	loadedAt := snap.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	metrics.RecordReload(true, len(snap.Orders), len(snap.Locations), float64(loadedAt.Unix()))
	return nil
}

// Reload 调用 load 并替换快照
func (s *Store) Reload(load Loader) error {
	snap, err := load()
	if err != nil {
		metrics.RecordReload(false, 0, 0, 0)
		return err
	}
	return s.Replace(snap)
}
