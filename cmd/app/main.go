package main

import (
	"context"
	"fmt"
	"os"

	"gride/internal/config"
	"gride/internal/mylogger"
	realtimeservice "gride/internal/realtime-service"
	walletservice "gride/internal/wallet-service"
)

const usage = `usage: gride <command>

commands:
  realtime-service   websocket gateway, presence and driver notifications
  wallet-service     driver wallet, payouts and transfers`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	bootLog := mylogger.New(os.Getenv("LOG_LEVEL"))
	cfg := config.New(bootLog)
	mylog := mylogger.New(cfg.Log.Level).With("service", os.Args[1])

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "realtime-service":
		err = realtimeservice.Execute(ctx, mylog, cfg)
	case "wallet-service":
		err = walletservice.Execute(ctx, mylog, cfg)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		os.Exit(1)
	}
}
