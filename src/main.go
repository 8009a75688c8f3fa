package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"EcomInsight/src/config"
	"EcomInsight/src/dashboard"
	"EcomInsight/src/datapush"
	"EcomInsight/src/datasource/database"
	"EcomInsight/src/datasource/email"
	"EcomInsight/src/datasource/file"
	"EcomInsight/src/model"
	"EcomInsight/src/processor"
	"EcomInsight/src/report"
	"EcomInsight/src/storage"

	"github.com/robfig/cron"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// options 命令行参数
type options struct {
	configDir  string
	configFile string
	dataFile   string
	mode       string
	start      string
	end        string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("ecominsight", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.configDir, "config", "./config", "配置目录")
	fs.StringVar(&o.configFile, "config-file", "config.yaml", "主配置文件名")
	fs.StringVar(&o.dataFile, "data-config", "dataconfig.yaml", "数据配置文件名")
	fs.StringVar(&o.mode, "mode", "serve", "运行模式: serve | report")
	fs.StringVar(&o.start, "start", "", "报表开始日期 2006-01-02")
	fs.StringVar(&o.end, "end", "", "报表结束日期 2006-01-02")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.mode != "serve" && o.mode != "report" {
		return nil, fmt.Errorf("未知模式 %q", o.mode)
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	cfg, dcfg, err := config.LoadConfig(opts.configDir, opts.configFile, opts.dataFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLoggerFromConfig(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch opts.mode {
	case "report":
		path, err := runReport(ctx, cfg, dcfg, opts, logger, true)
		if err != nil {
			logger.Error("生成报表失败", zap.Error(err))
			os.Exit(1)
		}
		fmt.Println(path)
	default:
		if err := serve(ctx, opts, cfg, dcfg, logger); err != nil {
			logger.Error("服务异常退出", zap.Error(err))
			os.Exit(1)
		}
	}
}

/******************** 数据加载 ********************/

// loadSnapshot 按 source.type 从文件或数据库读取快照
func loadSnapshot(ctx context.Context, cfg *config.Config, dcfg *config.DataConfig) (*model.Snapshot, error) {
	if cfg.Source.Type == "" || cfg.Source.Type == "file" {
		return file.LoadSnapshot(cfg, dcfg)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	orders, err := database.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 线路表始终来自文件
	var locations []model.Location
	if _, statErr := os.Stat(cfg.LocationsPath()); statErr == nil {
		if locations, err = file.ReadLocations(cfg.LocationsPath(), dcfg); err != nil {
			return nil, err
		}
	}
	return &model.Snapshot{
		Orders:    orders,
		Locations: locations,
		Source:    cfg.Source.Type,
		LoadedAt:  time.Now(),
	}, nil
}

func reload(ctx context.Context, store *dashboard.Store, cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) {
	t1 := time.Now()
	err := store.Reload(func() (*model.Snapshot, error) { return loadSnapshot(ctx, cfg, dcfg) })
	if err != nil {
		logger.Error("加载数据集失败，继续使用旧数据", zap.Error(err))
		return
	}
	snap := store.Processor().Snapshot()
	logger.Info("数据集已加载",
		zap.String("source", snap.Source),
		zap.Int("orders", len(snap.Orders)),
		zap.Int("locations", len(snap.Locations)),
		zap.Duration("elapsed", time.Since(t1)))
}

/******************** 报表 ********************/

// runReport 计算窗口并导出，progress 为 true 时在终端显示进度条
func runReport(ctx context.Context, cfg *config.Config, dcfg *config.DataConfig, opts *options, logger *storage.Logger, progress bool) (string, error) {
	start, err := optionalDate(opts.start)
	if err != nil {
		return "", err
	}
	end, err := optionalDate(opts.end)
	if err != nil {
		return "", err
	}

	snap, err := loadSnapshot(ctx, cfg, dcfg)
	if err != nil {
		return "", err
	}
	proc := processor.NewDataProcessor(snap, dcfg)
	if err := proc.CleanData(); err != nil {
		return "", err
	}
	r, err := proc.Compute(start, end)
	if err != nil {
		return "", err
	}

	exporter, err := report.NewExporter(cfg, logger)
	if err != nil {
		return "", err
	}

	var onSheet report.Progress
	if progress {
		bar := progressbar.Default(int64(len(report.Sheets)), "导出报表")
		onSheet = func(string) { _ = bar.Add(1) }
	}
	path, err := exporter.Export(r, "cli", onSheet)
	if err != nil {
		return "", err
	}

	if cfg.SendEmail.Enabled {
		if err := datapush.NewReportMailer(cfg, logger).Send(exporter.Summary(r), path); err != nil {
			return path, err
		}
	}
	return path, nil
}

// scheduledReport 定时任务：导出当前快照的全量窗口并可选发送邮件
func scheduledReport(store *dashboard.Store, exporter *report.Exporter, mailer *datapush.ReportMailer, logger *storage.Logger) {
	r, err := store.Processor().Compute(time.Time{}, time.Time{})
	if err != nil {
		logger.Error("定时报表计算失败", zap.Error(err))
		return
	}
	path, err := exporter.Export(r, "cron", nil)
	if err != nil {
		logger.Error("定时报表导出失败", zap.Error(err))
		return
	}
	if mailer != nil {
		if err := mailer.Send(exporter.Summary(r), path); err != nil {
			logger.Error("定时报表发送失败", zap.Error(err))
		}
	}
}

func optionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return processor.ParseDate(s)
}

/******************** 服务模式 ********************/

func serve(ctx context.Context, opts *options, cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	if err := writePidFile(cfg.PidFile); err != nil {
		return err
	}
	defer os.Remove(cfg.PidFile)

	store := dashboard.NewStore(dcfg)
	reload(ctx, store, cfg, dcfg, logger)

	exporter, err := report.NewExporter(cfg, logger)
	if err != nil {
		return err
	}

	// 设置定时任务
	c := cron.New()
	if err := scheduleJobs(c, ctx, store, exporter, cfg, dcfg, logger); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	// 文件数据源变化时重新加载
	if cfg.Source.Type == "" || cfg.Source.Type == "file" {
		monitor, err := file.NewFileMonitor(cfg.DataDir, cfg.OrdersFile, cfg.LocationsFile)
		if err != nil {
			logger.Warning("文件监听不可用", zap.Error(err))
		} else {
			defer monitor.Close()
			go func() {
				err := monitor.Watch(ctx, func(path string) {
					logger.Info("检测到数据文件更新", zap.String("path", path))
					reload(ctx, store, cfg, dcfg, logger)
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("文件监听退出", zap.Error(err))
				}
			}()
		}
	}

	// SIGHUP: 重新打开日志文件并重新加载数据
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				if err := logger.Reopen(""); err != nil {
					logger.Error("重新打开日志失败", zap.Error(err))
				}
				if err := applyLogLevel(opts, logger); err != nil {
					logger.Warning("日志级别未更新", zap.Error(err))
				}
				logger.Info("收到 SIGHUP，重新加载")
				reload(ctx, store, cfg, dcfg, logger)
			case <-ctx.Done():
				return
			}
		}
	}()

	server := dashboard.NewServer(store, exporter, logger)
	return server.Run(ctx, cfg.Server.ListenAddr)
}

// applyLogLevel 重新读取配置文件中的 log_level 并生效
func applyLogLevel(opts *options, logger *storage.Logger) error {
	cfg, _, err := config.Load(opts.configDir, opts.configFile, opts.dataFile)
	if err != nil {
		return err
	}
	return logger.SetLevel(cfg.LogLevel)
}

// scheduleJobs 注册日志轮转、邮件检查与定时报表
func scheduleJobs(c *cron.Cron, ctx context.Context, store *dashboard.Store, exporter *report.Exporter, cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) error {
	err := c.AddFunc("@every 1m", func() {
		if err := logger.CheckRotate(cfg); err != nil {
			logger.Error("日志轮转失败", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("创建日志轮转任务失败: %w", err)
	}

	if cfg.Email.Enabled {
		emailClient := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
		handler := email.NewDatasetAttachmentHandler(cfg, dcfg)
		spec := fmt.Sprintf("@every %s", time.Duration(cfg.Email.CheckInterval))
		err := c.AddFunc(spec, func() {
			newEmail, err := email.CheckAndProcessEmails(emailClient, cfg.Email.TargetSubject, logger)
			if err != nil {
				logger.Error("检查处理邮件失败", zap.Error(err))
				return
			}
			saved, err := handler.Handle(newEmail, logger)
			if err != nil {
				logger.Error("保存数据集附件失败", zap.Error(err))
				return
			}
			// 数据库数据源不经文件监听，这里直接重新加载
			if len(saved) > 0 && cfg.Source.Type != "" && cfg.Source.Type != "file" {
				reload(ctx, store, cfg, dcfg, logger)
			}
		})
		if err != nil {
			return fmt.Errorf("创建邮件检查任务失败: %w", err)
		}
		logger.Info("邮件监控已启动", zap.String("interval", spec))
	}

	if cfg.Report.Enabled {
		var mailer *datapush.ReportMailer
		if cfg.SendEmail.Enabled {
			mailer = datapush.NewReportMailer(cfg, logger)
		}
		spec := fmt.Sprintf("@every %s", time.Duration(cfg.Report.Interval))
		if err := c.AddFunc(spec, func() { scheduledReport(store, exporter, mailer, logger) }); err != nil {
			return fmt.Errorf("创建报表任务失败: %w", err)
		}
		logger.Info("定时报表已启动", zap.String("interval", spec))
	}
	return nil
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

