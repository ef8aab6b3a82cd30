package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"echowise/+/utterance", "echowise/phone-1/utterance", true},
		{"echowise/+/utterance", "echowise/phone-1/response", false},
		{"echowise/+/utterance", "echowise/utterance", false},
		{"echowise/devices/phone/result/+", "echowise/devices/phone/result/abc", true},
		{"echowise/#", "echowise/a/b/c", true},
		{"a/b", "a/b/c", false},
	}
	for _, tt := range tests {
		t.Run(tt.filter+" "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.filter, tt.topic))
		})
	}
}
