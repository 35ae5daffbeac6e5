package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Rule violations a client can recover from by issuing a different command.
// They are returned by MatchEngine operations and surfaced to the offending
// client only, never broadcast.
var (
	ErrRoomFull      = errors.New("room already has two players")
	ErrUnknownPlayer = errors.New("player is not in this room")
	ErrGameNotActive = errors.New("game is not in progress")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrTileNotInHand = errors.New("tile not in your hand")
	ErrIllegalMove   = errors.New("tile does not fit either end of the board")
	ErrPoolEmpty     = errors.New("the pool is empty")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
