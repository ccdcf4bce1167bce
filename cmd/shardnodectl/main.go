package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rechain/shardchain/internal/rpc"
	"github.com/rechain/shardchain/internal/types"
)

var (
	rpcAddr  string
	restAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shardnodectl",
		Short: "shardnode CLI tool",
	}

	rootCmd.PersistentFlags().StringVar(&rpcAddr, "rpc-addr", "localhost:9090", "catch-up rpc server address")
	rootCmd.PersistentFlags().StringVar(&restAddr, "rest-addr", "http://localhost:1317", "status api address")

	rootCmd.AddCommand(shardCmd(), blockCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func shardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shard",
		Short: "Shard operations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "height [shard-id]",
			Short: "Get a shard's confirmed height",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				getJSON(fmt.Sprintf("%s/shards/%s/height", restAddr, args[0]))
			},
		},
		&cobra.Command{
			Use:   "chunks [shard-id] [start-height]",
			Short: "Pull shard chunks from a peer's catch-up service",
			Args:  cobra.ExactArgs(2),
			Run: func(cmd *cobra.Command, args []string) {
				shardID := parseUint32(args[0])
				start := parseUint64(args[1])

				conn, err := grpc.Dial(rpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					log.Fatalf("Failed to connect: %v", err)
				}
				defer conn.Close()

				client := rpc.NewCatchUpClient(conn)
				resp, err := client.GetShardChunks(context.Background(), &rpc.ShardChunksRequest{
					ShardID:          types.ShardId(shardID),
					StartBlockNumber: start,
				})
				if err != nil {
					log.Fatalf("Failed to fetch shard chunks: %v", err)
				}

				printJSON(resp)
			},
		},
	)

	return cmd
}

func blockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Block operations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "latest",
			Short: "Get latest committed block",
			Run: func(cmd *cobra.Command, args []string) {
				getJSON(restAddr + "/blocks/latest")
			},
		},
		&cobra.Command{
			Use:   "get [height]",
			Short: "Get block by height",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				getJSON(fmt.Sprintf("%s/blocks/%s", restAddr, args[0]))
			},
		},
	)

	return cmd
}

func getJSON(url string) {
	resp, err := http.Get(url)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var v interface{}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		log.Fatalf("decode failed: %v", err)
	}
	printJSON(v)
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
}

func parseUint64(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid uint64 %q: %v", s, err)
	}
	return v
}

func parseUint32(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		log.Fatalf("invalid shard id %q: %v", s, err)
	}
	return uint32(v)
}
