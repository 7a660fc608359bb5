package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes maps config names to CDP resource types. Scripts, XHR and
// documents are never blockable: the feed is rendered client-side.
var blockableTypes = map[string]proto.NetworkResourceType{
	"images": proto.NetworkResourceTypeImage,
	"fonts":  proto.NetworkResourceTypeFont,
	"media":  proto.NetworkResourceTypeMedia,
}

// applyResourceBlocking fails requests for the configured resource types.
// The returned router must be stopped when the tab closes.
func applyResourceBlocking(page *rod.Page, names []string) *rod.HijackRouter {
	block := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		if t, ok := blockableTypes[strings.ToLower(n)]; ok {
			block[t] = true
		}
	}
	if len(block) == 0 {
		return nil
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if block[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}
