package main

import (
	"fmt"
	"os"
	"os/exec"

	"agent-platform/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("agent-platform cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: coagent server start\n")
			os.Exit(1)
		}
	case "ask":
		runAsk(args)
	case "turns":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: coagent turns <session_id> [count]\n")
			os.Exit(1)
		}
		count := "10"
		if len(args) > 1 {
			count = args[1]
		}
		runTurns(args[0], count)
	case "purge":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: coagent purge <session_id>\n")
			os.Exit(1)
		}
		runPurge(args[0])
	case "capabilities":
		runCapabilities()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: coagent <command> [args]")
	fmt.Println("  version                    - 显示版本")
	fmt.Println("  health                     - 服务健康检查")
	fmt.Println("  config                     - 显示配置概要")
	fmt.Println("  server start               - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  ask [session_id] <text>    - 发起一次查询（单参数时自动新建会话）")
	fmt.Println("  turns <session_id> [count] - 查看会话最近轮次（最近在前）")
	fmt.Println("  purge <session_id>         - 清除会话历史")
	fmt.Println("  capabilities               - 列出当前已注册能力")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if cfg != nil {
		fmt.Printf("server.host=%s\n", cfg.Server.Host)
		fmt.Printf("server.port=%d\n", cfg.Server.Port)
		fmt.Printf("model.provider=%s\n", cfg.Model.Provider)
		fmt.Printf("cache.type=%s\n", cfg.Cache.Type)
		fmt.Printf("synthesis.provider=%s\n", cfg.Synthesis.Provider)
	}
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runAsk(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: coagent ask [session_id] <text>\n")
		os.Exit(1)
	}
	sessionID := ""
	text := args[0]
	if len(args) > 1 {
		sessionID = args[0]
		text = args[1]
	}
	out, err := postQuery(sessionID, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查询失败: %v\n", err)
		os.Exit(1)
	}
	if answer, ok := out["answer"].(string); ok && answer != "" {
		fmt.Println(answer)
		fmt.Println()
	}
	fmt.Printf("session: %v  state: %v\n", out["session_id"], out["state"])
}

func runTurns(sessionID, count string) {
	out, err := getTurns(sessionID, count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查看轮次失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runPurge(sessionID string) {
	out, err := purgeSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "清除失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runCapabilities() {
	out, err := listCapabilities()
	if err != nil {
		fmt.Fprintf(os.Stderr, "列出能力失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}
