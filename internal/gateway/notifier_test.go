package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	topic, err := client.CreateTopic(ctx, "reconciliation-summaries")
	require.NoError(t, err)
	t.Cleanup(topic.Stop)

	n := NewPubSubNotifier(topic)
	require.NoError(t, n.Notify(ctx, "Statement reconciliation: Acme Supply RECONCILED", "All 2 line(s) matched.\n"))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)

	var got NotificationMessage
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "Statement reconciliation: Acme Supply RECONCILED", got.Subject)
	assert.Equal(t, "All 2 line(s) matched.\n", got.Body)
	assert.NotEmpty(t, got.CorrelationID)
	assert.Equal(t, got.CorrelationID, msgs[0].Attributes["correlation_id"])
}

func TestLogNotifier_Notify(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()

	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), "subject", "body"))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "body", hook.LastEntry().Message)
	assert.Equal(t, "subject", hook.LastEntry().Data["subject"])
}
