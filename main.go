package main

import (
	"github.com/rs/zerolog/log"

	"github.com/ukicomputers/rpidec/internal/app"
	"github.com/ukicomputers/rpidec/internal/decode"
)

func main() {
	app.Init() // init config and logs

	if err := decode.Run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}
