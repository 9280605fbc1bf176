package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/nergy-se/hourcontroller/pkg/api/v1/meter"
	"github.com/sirupsen/logrus"
)

// Start runs an embedded broker on address until ctx is done.
func Start(ctx context.Context, wg *sync.WaitGroup, address string) (*mqttv2.Server, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
	err := server.AddListener(tcp)
	if err != nil {
		return server, err
	}

	err = server.Serve()
	if err != nil {
		return server, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		server.Close()
	}()
	return server, nil
}

type subscriber interface {
	Subscribe(filter string, subscriptionId int, handler mqttv2.InlineSubFn) error
}

// SubscribeP1ib calls fn with every reading published by a p1ib reader.
func SubscribeP1ib(server subscriber, fn func(meter.Data)) error {
	return server.Subscribe(P1ibTopic, 1, func(cl *mqttv2.Client, sub packets.Subscription, pk packets.Packet) {
		data, err := decodeP1ib(pk.Payload, time.Now())
		if err != nil {
			logrus.Errorf("mqtt: %s", err)
			return
		}
		fn(data)
	})
}

func decodeP1ib(payload []byte, ts time.Time) (meter.Data, error) {
	p := P1ib{}
	err := json.Unmarshal(payload, &p)
	if err != nil {
		return meter.Data{}, fmt.Errorf("error decoding p1ib payload: %w", err)
	}
	id := p.P1IbWifiMac
	if id == "" {
		id = "p1ib"
	}
	return p.AsMeterData(id, ts), nil
}
