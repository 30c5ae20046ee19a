package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcpropagation "github.com/light-bringer/metasync-service/internal/transport/grpc/propagation"
)

const usage = `usage: propagate [flags] <command>

commands:
  run     run a propagation and wait for it (-definition, -category)
  errors  list error log entries (-category, -definition, -limit)
  clear   clear the error log (-by)
  runs    list recorded runs (-definition, -state, -limit)
`

func main() {
	addr := flag.String("addr", "localhost:9090", "gRPC address of the metasync server")
	definition := flag.String("definition", "", "definition id")
	category := flag.String("category", "", "definition category (brand, occasion, category)")
	state := flag.String("state", "", "run state filter")
	limit := flag.Int("limit", 20, "max results")
	clearedBy := flag.String("by", os.Getenv("USER"), "operator clearing the error log")
	timeout := flag.Duration("timeout", 30*time.Minute, "call timeout")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	client := grpcpropagation.NewAdminClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		req   map[string]interface{}
		reply *structpb.Struct
	)
	switch flag.Arg(0) {
	case "run":
		req = map[string]interface{}{"definition_id": *definition, "category": *category}
		reply, err = call(ctx, client.Propagate, req)
	case "errors":
		req = map[string]interface{}{"category": *category, "definition_id": *definition, "limit": *limit}
		reply, err = call(ctx, client.ListErrorLog, req)
	case "clear":
		req = map[string]interface{}{"cleared_by": *clearedBy}
		reply, err = call(ctx, client.ClearErrorLog, req)
	case "runs":
		req = map[string]interface{}{"definition_id": *definition, "state": *state, "limit": *limit}
		reply, err = call(ctx, client.ListRuns, req)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", flag.Arg(0), err)
	}

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(reply)
	if err != nil {
		log.Fatalf("Failed to encode reply: %v", err)
	}
	fmt.Println(string(out))
}

type method func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func call(ctx context.Context, m method, req map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	return m(ctx, in)
}
