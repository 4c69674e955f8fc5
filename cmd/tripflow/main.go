// =============================================================================
// TripFlow 主入口
// =============================================================================
// AI 旅游助手命令行工具，包含交互式对话与单次提问两种模式
//
// 使用方法:
//
//	tripflow chat                         # 交互式对话
//	tripflow chat --config config.yaml    # 指定配置文件
//	tripflow ask "推荐几个历史文化名城"     # 单次提问
//	tripflow models                       # 列出可用模型
//	tripflow version                      # 显示版本信息
// =============================================================================
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/session"
	"github.com/BaSui01/tripflow/travel"
)

// 版本信息（构建时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigPath = "config/tripflow.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(os.Args[2:])
	case "ask":
		runAsk(os.Args[2:])
	case "models":
		runModels(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 💬 chat 命令
// =============================================================================

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "配置文件路径")
	modelID := fs.String("model", "", "模型 ID（缺省用 default_model）")
	fs.Parse(args)

	cfg, logger, assistant := bootstrap(*configPath, *modelID)
	defer logger.Sync()

	ctx := context.Background()
	store := openSessionStore(ctx, cfg, logger)
	defer store.Close()

	if p := cfg.Memory.PersistPath; p != "" {
		defer func() {
			if err := assistant.Memory().SaveToFile(p); err != nil {
				logger.Warn("保存记忆失败", zap.Error(err))
			}
		}()
	}

	// 进场先清一轮过期会话
	if removed, err := store.Cleanup(ctx, cfg.Session.TTL); err == nil && removed > 0 {
		logger.Info("清理过期会话", zap.Int("removed", removed))
	}

	sessionID, err := store.Create(ctx, &session.Session{ModelID: *modelID})
	if err != nil {
		logger.Warn("创建会话记录失败", zap.Error(err))
	}

	fmt.Println("TripFlow 旅游助手（输入 /exit 退出，/clear 清空对话，/help 查看命令）")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n你: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit", "/quit":
			fmt.Println("再见！")
			return
		case "/clear":
			assistant.ClearConversation()
			fmt.Println("对话已清空并归档。")
			continue
		case "/help":
			fmt.Println("命令: /exit 退出 | /clear 清空对话 | /help 帮助")
			continue
		}

		answer, reasoning := streamAnswer(ctx, assistant, input)
		if sessionID != "" {
			if err := session.AppendMessage(ctx, store, sessionID, "user", input, ""); err != nil {
				logger.Warn("会话写入失败", zap.Error(err))
			}
			if err := session.AppendMessage(ctx, store, sessionID, "assistant", answer, reasoning); err != nil {
				logger.Warn("会话写入失败", zap.Error(err))
			}
		}
	}
}

// streamAnswer 消费流式事件并打印，返回完整回答与推理过程。
func streamAnswer(ctx context.Context, assistant *travel.TravelAgent, input string) (answer, reasoning string) {
	var answerBuf, reasoningBuf strings.Builder
	for ev := range assistant.ProcessStream(ctx, input) {
		switch ev.Type {
		case travel.EventReasoningStart:
			fmt.Print("\n[推理中]")
		case travel.EventReasoningChunk:
			reasoningBuf.WriteString(ev.Content)
			fmt.Print(".")
		case travel.EventAnswerStart:
			fmt.Print("\n\n助手: ")
		case travel.EventChunk:
			answerBuf.WriteString(ev.Content)
			fmt.Print(ev.Content)
		case travel.EventError:
			fmt.Print("\n处理出错")
		}
	}
	fmt.Println()
	return answerBuf.String(), reasoningBuf.String()
}

// =============================================================================
// ❓ ask 命令
// =============================================================================

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "配置文件路径")
	modelID := fs.String("model", "", "模型 ID（缺省用 default_model）")
	showReasoning := fs.Bool("reasoning", false, "显示推理过程")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "用法: tripflow ask \"你的问题\"")
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	_, logger, assistant := bootstrap(*configPath, *modelID)
	defer logger.Sync()

	result := assistant.Process(context.Background(), question)
	if !result.Success {
		fmt.Fprintf(os.Stderr, "处理失败: %s\n", result.Error)
		os.Exit(1)
	}

	if *showReasoning && result.Reasoning != nil {
		fmt.Println(result.Reasoning.Text)
		fmt.Println()
	}
	fmt.Println(result.Answer)
}

// =============================================================================
// 📋 models 命令
// =============================================================================

func runModels(args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "配置文件路径")
	fs.Parse(args)

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	for _, m := range cfg.AvailableModels() {
		marker := " "
		if m.ModelID == cfg.DefaultModel {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-12s %s\n", marker, m.ModelID, m.Provider, m.Model)
	}
}

// =============================================================================
// 🔧 启动装配
// =============================================================================

func bootstrap(configPath, modelID string) (*config.Config, *zap.Logger, *travel.TravelAgent) {
	cfg, err := config.NewLoader().WithConfigPath(configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	logger.Info("TripFlow 启动",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	collector := metrics.NewCollector(prometheus.NewRegistry())
	assistant, err := travel.NewTravelAgent(travel.Options{
		Config:    cfg,
		ModelID:   modelID,
		Collector: collector,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("初始化助手失败", zap.Error(err))
	}
	return cfg, logger, assistant
}

// openSessionStore 按配置选择会话存储后端，redis 不可达时回退内存。
func openSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) session.Store {
	if cfg.Session.Backend == "redis" {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := session.Connect(connectCtx,
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize,
			cfg.Session.TTL)
		if err == nil {
			logger.Info("会话存储使用 redis", zap.String("addr", cfg.Redis.Addr))
			return store
		}
		logger.Warn("redis 不可达，会话存储回退内存", zap.Error(err))
	}
	return session.NewMemoryStore()
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("TripFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`TripFlow - AI 旅游助手

Usage:
  tripflow <command> [options]

Commands:
  chat      交互式对话
  ask       单次提问
  models    列出配置的模型
  version   显示版本信息
  help      显示本帮助

Options:
  --config <path>   配置文件路径（默认 config/tripflow.yaml）
  --model <id>      模型 ID（默认 default_model）

Examples:
  tripflow chat
  tripflow chat --config /etc/tripflow/config.yaml --model claude
  tripflow ask "预算3000元，想看历史文化，推荐去哪里？"
  tripflow ask --reasoning "帮我规划北京3天行程"
  tripflow models`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
