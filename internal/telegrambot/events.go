package telegrambot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/luoyanglang/telegram-monitor/internal/blacklist"
	"github.com/luoyanglang/telegram-monitor/internal/conversation"
	"github.com/luoyanglang/telegram-monitor/internal/core/domain"
	"github.com/luoyanglang/telegram-monitor/internal/rules"
)

// Callback data codes. Telegram limits callback data to 64 bytes, so
// the codes stay short and UUID arguments ride in the second field.
const (
	codeMainMenu = "m"
	codeCancel   = "x"
	codeHelp     = "help"

	codeKeywordMenu       = "km"
	codeKeywordNew        = "kn"
	codeKeywordMode       = "kmode"
	codeKeywordAction     = "kact"
	codeKeywordStyle      = "ksty"
	codeKeywordCase       = "kcase"
	codeKeywordDone       = "kdone"
	codeKeywordList       = "klist"
	codeKeywordDelete     = "kdel"
	codeKeywordDeleteYes  = "kdelc"
	codeKeywordImport     = "kimp"
	codeKeywordExport     = "kexp"

	codeBlacklistMenu      = "bm"
	codeBlacklistAdd       = "badd"
	codeBlacklistList      = "blist"
	codeBlacklistDelete    = "bdel"
	codeBlacklistDeleteYes = "bdelc"
	codeBlock              = "blk"
	codeUnblock            = "ublk"

	codeAccountMenu   = "am"
	codeLogin         = "login"
	codeLogout        = "logout"
	codeAccountStatus = "astat"
	codeProxy         = "proxy"
	codeProxyType     = "ptype"

	codeMonitorMenu   = "mm"
	codeMonitorStart  = "mstart"
	codeMonitorStop   = "mstop"
	codeMonitorStatus = "mstat"
	codeTargetMenu    = "target"
	codeTargetSelect  = "tsel"
)

const fieldSep = "|"

// encodeEvent turns a dialogue event into callback data.
func encodeEvent(ev conversation.Event) string {
	switch ev.Kind {
	case conversation.EventMainMenu:
		return codeMainMenu
	case conversation.EventCancel:
		return codeCancel
	case conversation.EventHelp:
		return codeHelp

	case conversation.EventKeywordMenu:
		return codeKeywordMenu
	case conversation.EventKeywordNew:
		return codeKeywordNew
	case conversation.EventKeywordMode:
		return join(codeKeywordMode, string(ev.Mode))
	case conversation.EventKeywordAction:
		return join(codeKeywordAction, string(ev.Action))
	case conversation.EventKeywordStyle:
		return join(codeKeywordStyle, strconv.Itoa(int(ev.Style)))
	case conversation.EventKeywordCaseToggle:
		return codeKeywordCase
	case conversation.EventKeywordDone:
		return codeKeywordDone
	case conversation.EventKeywordList:
		return join(codeKeywordList, strconv.Itoa(ev.Page))
	case conversation.EventKeywordDelete:
		return join(codeKeywordDelete, ev.ID)
	case conversation.EventKeywordDeleteYes:
		return join(codeKeywordDeleteYes, ev.ID)
	case conversation.EventKeywordImport:
		return codeKeywordImport
	case conversation.EventKeywordExport:
		return codeKeywordExport

	case conversation.EventBlacklistMenu:
		return codeBlacklistMenu
	case conversation.EventBlacklistAdd:
		return join(codeBlacklistAdd, string(ev.TargetType))
	case conversation.EventBlacklistList:
		return join(codeBlacklistList, strconv.Itoa(ev.Page))
	case conversation.EventBlacklistDelete:
		return join(codeBlacklistDelete, ev.ID, strconv.Itoa(ev.Page))
	case conversation.EventBlacklistDeleteYes:
		return join(codeBlacklistDeleteYes, ev.ID)
	case conversation.EventBlock:
		return join(codeBlock, string(ev.TargetType), ev.TargetID)
	case conversation.EventUnblock:
		return join(codeUnblock, string(ev.TargetType), ev.TargetID)

	case conversation.EventAccountMenu:
		return codeAccountMenu
	case conversation.EventLogin:
		return codeLogin
	case conversation.EventLogout:
		return codeLogout
	case conversation.EventAccountStatus:
		return codeAccountStatus
	case conversation.EventProxy:
		return codeProxy
	case conversation.EventProxyType:
		return join(codeProxyType, string(ev.ProxyType))

	case conversation.EventMonitorMenu:
		return codeMonitorMenu
	case conversation.EventMonitorStart:
		return codeMonitorStart
	case conversation.EventMonitorStop:
		return codeMonitorStop
	case conversation.EventMonitorStatus:
		return codeMonitorStatus
	case conversation.EventTargetMenu:
		return codeTargetMenu
	case conversation.EventTargetSelect:
		return join(codeTargetSelect, strconv.FormatInt(ev.ChatID, 10))
	}

	return codeMainMenu
}

// decodeEvent parses callback data back into a dialogue event.
func decodeEvent(data string) (conversation.Event, error) {
	fields := strings.Split(data, fieldSep)
	code, args := fields[0], fields[1:]

	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}

		return ""
	}

	switch code {
	case codeMainMenu:
		return conversation.Event{Kind: conversation.EventMainMenu}, nil
	case codeCancel:
		return conversation.Event{Kind: conversation.EventCancel}, nil
	case codeHelp:
		return conversation.Event{Kind: conversation.EventHelp}, nil

	case codeKeywordMenu:
		return conversation.Event{Kind: conversation.EventKeywordMenu}, nil
	case codeKeywordNew:
		return conversation.Event{Kind: conversation.EventKeywordNew}, nil
	case codeKeywordMode:
		mode, err := rules.ParseMode(arg(0))
		if err != nil {
			return conversation.Event{}, err
		}

		return conversation.Event{Kind: conversation.EventKeywordMode, Mode: mode}, nil
	case codeKeywordAction:
		action, err := rules.ParseAction(arg(0))
		if err != nil {
			return conversation.Event{}, err
		}

		return conversation.Event{Kind: conversation.EventKeywordAction, Action: action}, nil
	case codeKeywordStyle:
		flag, err := strconv.ParseUint(arg(0), 10, 16)
		if err != nil {
			return conversation.Event{}, fmt.Errorf("parse style flag: %w", err)
		}

		return conversation.Event{Kind: conversation.EventKeywordStyle, Style: rules.Style(flag)}, nil
	case codeKeywordCase:
		return conversation.Event{Kind: conversation.EventKeywordCaseToggle}, nil
	case codeKeywordDone:
		return conversation.Event{Kind: conversation.EventKeywordDone}, nil
	case codeKeywordList:
		return conversation.Event{Kind: conversation.EventKeywordList, Page: parsePage(arg(0))}, nil
	case codeKeywordDelete:
		return conversation.Event{Kind: conversation.EventKeywordDelete, ID: arg(0), Page: parsePage(arg(1))}, nil
	case codeKeywordDeleteYes:
		return conversation.Event{Kind: conversation.EventKeywordDeleteYes, ID: arg(0)}, nil
	case codeKeywordImport:
		return conversation.Event{Kind: conversation.EventKeywordImport}, nil
	case codeKeywordExport:
		return conversation.Event{Kind: conversation.EventKeywordExport}, nil

	case codeBlacklistMenu:
		return conversation.Event{Kind: conversation.EventBlacklistMenu}, nil
	case codeBlacklistAdd:
		return conversation.Event{Kind: conversation.EventBlacklistAdd, TargetType: blacklist.TargetType(arg(0))}, nil
	case codeBlacklistList:
		return conversation.Event{Kind: conversation.EventBlacklistList, Page: parsePage(arg(0))}, nil
	case codeBlacklistDelete:
		return conversation.Event{Kind: conversation.EventBlacklistDelete, ID: arg(0), Page: parsePage(arg(1))}, nil
	case codeBlacklistDeleteYes:
		return conversation.Event{Kind: conversation.EventBlacklistDeleteYes, ID: arg(0)}, nil
	case codeBlock:
		return conversation.Event{Kind: conversation.EventBlock, TargetType: blacklist.TargetType(arg(0)), TargetID: arg(1)}, nil
	case codeUnblock:
		return conversation.Event{Kind: conversation.EventUnblock, TargetType: blacklist.TargetType(arg(0)), TargetID: arg(1)}, nil

	case codeAccountMenu:
		return conversation.Event{Kind: conversation.EventAccountMenu}, nil
	case codeLogin:
		return conversation.Event{Kind: conversation.EventLogin}, nil
	case codeLogout:
		return conversation.Event{Kind: conversation.EventLogout}, nil
	case codeAccountStatus:
		return conversation.Event{Kind: conversation.EventAccountStatus}, nil
	case codeProxy:
		return conversation.Event{Kind: conversation.EventProxy}, nil
	case codeProxyType:
		return conversation.Event{Kind: conversation.EventProxyType, ProxyType: domain.ProxyType(arg(0))}, nil

	case codeMonitorMenu:
		return conversation.Event{Kind: conversation.EventMonitorMenu}, nil
	case codeMonitorStart:
		return conversation.Event{Kind: conversation.EventMonitorStart}, nil
	case codeMonitorStop:
		return conversation.Event{Kind: conversation.EventMonitorStop}, nil
	case codeMonitorStatus:
		return conversation.Event{Kind: conversation.EventMonitorStatus}, nil
	case codeTargetMenu:
		return conversation.Event{Kind: conversation.EventTargetMenu}, nil
	case codeTargetSelect:
		chatID, err := strconv.ParseInt(arg(0), 10, 64)
		if err != nil {
			return conversation.Event{}, fmt.Errorf("parse chat id: %w", err)
		}

		return conversation.Event{Kind: conversation.EventTargetSelect, ChatID: chatID}, nil
	}

	return conversation.Event{}, fmt.Errorf("unknown callback code %q", code)
}

func join(fields ...string) string {
	return strings.Join(fields, fieldSep)
}

func parsePage(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 0 {
		return 0
	}

	return page
}
