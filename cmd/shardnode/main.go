package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rechain/shardchain/internal/node"
	"github.com/rechain/shardchain/internal/restapi"
	"github.com/rechain/shardchain/internal/rpc"
	"github.com/rechain/shardchain/internal/transport"
	"github.com/rechain/shardchain/pkg/config"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gossip, err := transport.NewP2PGossip(transport.Config{
		ListenPort: cfg.Gossip.Port,
		Seeds:      cfg.Gossip.Seeds,
		MaxPeers:   cfg.Gossip.MaxPeers,
	})
	if err != nil {
		log.Fatalf("Failed to initialize gossip transport: %v", err)
	}

	sup, err := node.New(node.Config{
		RootDir:      cfg.Node.DataDir,
		NumShards:    cfg.Shards.Count,
		Address:      []byte(cfg.Node.ID),
		BlockTime:    cfg.Consensus.BlockTime,
		RoundTimeout: cfg.Consensus.RoundTimeout,
		Gossip:       gossip,
		Fetcher:      rpc.NewFetcher(),
	})
	if err != nil {
		log.Fatalf("Failed to wire node: %v", err)
	}
	if err := sup.Start(ctx); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
	defer sup.Stop()

	rpcServer := rpc.NewServer(sup.ShardLookups(), sup.BlockLookup())
	go func() {
		log.Printf("catch-up rpc server starting on %s", cfg.RPC.ListenAddress)
		if err := rpcServer.Serve(cfg.RPC.ListenAddress); err != nil {
			log.Printf("rpc server error: %v", err)
		}
	}()
	defer rpcServer.Stop()

	if cfg.API.REST.Enabled {
		restServer := restapi.NewServer(sup)
		go func() {
			log.Printf("status api starting on %s", cfg.API.REST.Address)
			if err := restServer.Start(cfg.API.REST.Address); err != nil {
				log.Printf("rest server error: %v", err)
			}
		}()
		defer restServer.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
}
