package outbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/ranking/internal/events"
)

func TestWireFormatRoundTrip(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{"ok":true}`))
	require.Equal(t, []byte{0, 0, 0, 1, 2}, frame[:5])

	id, payload, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.Equal(t, `{"ok":true}`, string(payload))

	_, _, err = DecodeWireFormat([]byte{1, 0, 0, 0, 1})
	require.Error(t, err)
	_, _, err = DecodeWireFormat([]byte{0, 1})
	require.Error(t, err)
}

func TestRouteForCoversEveryEventType(t *testing.T) {
	cases := map[string]string{
		events.TypeActivityCreated:     TopicActivityEvents,
		events.TypeActivityUpdated:     TopicActivityEvents,
		events.TypeActivityDeleted:     TopicActivityEvents,
		events.TypeSubmissionSubmitted: TopicSubmissionEvents,
		events.TypeSubmissionReviewed:  TopicSubmissionEvents,
		events.TypeSubmissionDeleted:   TopicSubmissionEvents,
		events.TypeAttachmentReleased:  TopicAttachmentEvents,
	}
	for eventType, topic := range cases {
		route, ok := RouteFor(eventType)
		require.Truef(t, ok, "missing route for %s", eventType)
		require.Equal(t, topic, route.Topic)
		require.Equal(t, topic+"-value", route.SchemaSubject)
		require.NotEmpty(t, route.Schema)
	}

	_, ok := RouteFor("activity.unknown")
	require.False(t, ok)
}

func TestBackoffDelayIsCapped(t *testing.T) {
	m := NewDLQManager(nil, 5, time.Minute)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(10))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestSchemaRegistryClientRegistersMissingSubject(t *testing.T) {
	var (
		registered  map[string]any
		contentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/subjects/attachment_events-value/versions/latest":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":40401,"message":"Subject not found."}`))
		case r.Method == http.MethodPost && r.URL.Path == "/subjects/attachment_events-value/versions":
			contentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&registered)
			_, _ = w.Write([]byte(`{"id":9}`))
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	route, _ := RouteFor(events.TypeAttachmentReleased)
	id, err := client.EnsureSchema(context.Background(), route.SchemaSubject, route.Schema)
	require.NoError(t, err)
	require.Equal(t, 9, id)
	require.Equal(t, "application/vnd.schemaregistry.v1+json", contentType)
	require.Equal(t, "JSON", registered["schemaType"])
	require.Equal(t, route.Schema, registered["schema"])
}

func TestSchemaRegistryClientReusesLatestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "lookup only", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"id":3,"version":2}`))
	}))
	defer srv.Close()

	id, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "submission_events-value", "{}")
	require.NoError(t, err)
	require.Equal(t, 3, id)
}

func TestSchemaRegistryClientSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "activity_events-value", "{}")
	require.ErrorContains(t, err, "boom")
}

func TestKafkaProducerReusesWritersAndRejectsAfterClose(t *testing.T) {
	producer := NewKafkaProducer([]string{"localhost:9092"}, WithWriteTimeout(time.Second), WithTopicAutoCreation())

	first, err := producer.writerForTopic(TopicSubmissionEvents)
	require.NoError(t, err)
	again, err := producer.writerForTopic(TopicSubmissionEvents)
	require.NoError(t, err)
	require.Same(t, first, again)
	require.Equal(t, time.Second, first.WriteTimeout)
	require.True(t, first.AllowAutoTopicCreation)
	require.IsType(t, &kafka.Hash{}, first.Balancer)

	require.NoError(t, producer.Close())
	err = producer.WriteMessages(context.Background(), TopicSubmissionEvents, kafka.Message{Value: []byte("x")})
	require.ErrorIs(t, err, ErrProducerClosed)
}

func TestRecordPublishedCountsPerTopic(t *testing.T) {
	activity := testutil.ToFloat64(publishedCounter.WithLabelValues(TopicActivityEvents))
	attachment := testutil.ToFloat64(publishedCounter.WithLabelValues(TopicAttachmentEvents))

	recordPublished([]Message{
		{Topic: TopicActivityEvents},
		{Topic: TopicAttachmentEvents},
		{Topic: TopicActivityEvents},
	})

	require.InDelta(t, activity+2, testutil.ToFloat64(publishedCounter.WithLabelValues(TopicActivityEvents)), 0.0001)
	require.InDelta(t, attachment+1, testutil.ToFloat64(publishedCounter.WithLabelValues(TopicAttachmentEvents)), 0.0001)
}
