package http1

import (
	"github.com/ember-web/ember/config"
	"github.com/ember-web/ember/http"
	"github.com/ember-web/ember/http/codec"
	"github.com/ember-web/ember/internal/transport"
	"github.com/indigo-web/utils/buffer"
)

var _ transport.Transport = Transport{}

type Transport struct {
	*Parser
	*Serializer
}

func New(
	request *http.Request,
	keyBuff, valBuff, startLineBuff *buffer.Buffer,
	respBuff []byte,
	defaultHeaders map[string]string,
	codecs *codec.Registry,
	cfg *config.Config,
) Transport {
	return Transport{
		Parser: NewParser(request, keyBuff, valBuff, startLineBuff, cfg.Headers),
		Serializer: NewSerializer(
			respBuff, cfg.HTTP.FileBuffSize, defaultHeaders, codecs, cfg.Compression,
		),
	}
}
