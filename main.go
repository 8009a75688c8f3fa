package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// 向运行中的看板服务发送 SIGHUP，触发日志重开与数据重新加载
func main() {
	pidFile := flag.String("pid", "ecominsight.pid", "服务写入的 pid 文件")
	flag.Parse()

	pid, err := readPid(*pidFile)
	if err != nil {
		log.Fatal("Failed to read pid file:", err)
	}
	if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
		log.Fatal("Failed to send SIGHUP:", err)
	}
	log.Printf("SIGHUP sent to %d", pid)
}

func readPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	if pid <= 0 {
		return 0, strconv.ErrRange
	}
	return pid, nil
}
