package health

import (
	"context"

	"google.golang.org/grpc/metadata"
)

const (
	ClientIDHeader = "x-client-id"
)

// ExtractClientIDHeader extracts the clientID from the context.
func ExtractClientIDHeader(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}

	values := md.Get(ClientIDHeader)
	if len(values) == 0 {
		return "", false
	}

	return values[0], true
}

func SetClientIDHeader(ctx context.Context, clientID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, ClientIDHeader, clientID)
}
