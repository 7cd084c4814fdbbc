package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
)

type payload struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

func TestEncodeAndDecode(t *testing.T) {
	msg, err := encode(Event{Key: "relevant", Value: payload{Query: "cat dog", Count: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Key) != "relevant" {
		t.Errorf("key = %q", msg.Key)
	}
	got, err := DecodeJSON[payload](msg.Value)
	if err != nil {
		t.Fatal(err)
	}
	if got.Query != "cat dog" || got.Count != 3 {
		t.Errorf("decoded = %+v", got)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	if _, err := DecodeJSON[payload]([]byte("{")); err == nil {
		t.Error("expected decode error")
	}
}

func TestPingWithoutBrokers(t *testing.T) {
	p := NewProducer(config.KafkaConfig{}, "evaluation-events")
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Ping(ctx); err == nil {
		t.Error("expected error with no brokers")
	}
}
