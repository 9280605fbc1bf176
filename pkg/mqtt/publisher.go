package mqtt

import (
	"encoding/json"

	"github.com/nergy-se/hourcontroller/pkg/api/v1/types"
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/nergy-se/hourcontroller/pkg/state"
	"github.com/sirupsen/logrus"
)

const topicPrefix = "hourselection/"

type publisher interface {
	Publish(topic string, payload []byte, retain bool, qos byte) error
}

// Publisher publishes hour objects, hour lists and the controller state as retained messages.
type Publisher struct {
	server publisher
}

func NewPublisher(server publisher) *Publisher {
	return &Publisher{server: server}
}

type hourList struct {
	Hour     int `json:"hour"`
	Today    any `json:"today"`
	Tomorrow any `json:"tomorrow"`
}

func (p *Publisher) Publish(today, tomorrow hourselection.HourObject) {
	p.publishJSON(topicPrefix+types.DayToday, today)
	p.publishJSON(topicPrefix+types.DayTomorrow, tomorrow)
}

func (p *Publisher) Notify(n hourselection.Notification) {
	lists := []hourselection.ListType{n.Type}
	if n.Type == hourselection.ListAll {
		lists = []hourselection.ListType{
			hourselection.ListNonHours,
			hourselection.ListCautionHours,
			hourselection.ListDynamicCautionHours,
		}
	}
	for _, l := range lists {
		msg := hourList{Hour: n.Hour}
		switch l {
		case hourselection.ListNonHours:
			msg.Today, msg.Tomorrow = n.Today.NonHours, n.Tomorrow.NonHours
		case hourselection.ListCautionHours:
			msg.Today, msg.Tomorrow = n.Today.CautionHours, n.Tomorrow.CautionHours
		case hourselection.ListDynamicCautionHours:
			msg.Today, msg.Tomorrow = n.Today.DynamicCautionHours, n.Tomorrow.DynamicCautionHours
		default:
			logrus.Warnf("mqtt: unknown hour list %q", l)
			continue
		}
		p.publishJSON(topicPrefix+string(l), msg)
	}
}

func (p *Publisher) PublishState(s state.State) {
	p.publishJSON(topicPrefix+"state", s.Map())
}

func (p *Publisher) publishJSON(topic string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.Errorf("mqtt: error encoding %s: %s", topic, err)
		return
	}
	err = p.server.Publish(topic, b, true, 0)
	if err != nil {
		logrus.Errorf("mqtt: error publishing %s: %s", topic, err)
	}
}
