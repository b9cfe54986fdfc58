package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/blockedby/copygram/internal/config"
)

// Callback data tags for inline keyboards.
const (
	cbMainMenu      = "main_menu"
	cbSetSource     = "set_source"
	cbSetTarget     = "set_target"
	cbSetRange      = "set_range"
	cbStartCopy     = "start_copy"
	cbCancelCopy    = "cancel_copy"
	cbPersonalCopy  = "personal_copy"
	cbCopyAll       = "copy_all"
	cbRangeManual   = "range_manual"
	cbRangeLinks    = "range_links"
	cbSessionMenu   = "session_menu"
	cbPhoneLogin    = "phone_login"
	cbStringLogin   = "string_login"
	cbSessionInfo   = "session_info"
	cbDeleteSession = "delete_session"
	cbMyStats       = "my_stats"
	cbVIP           = "vip"
	cbPayment       = "payment"
	cbHelp          = "help"
	cbAdmin         = "admin"
	cbAdminPromote  = "admin_promote"
	cbAdminDemote   = "admin_demote"
	cbAdminLimit    = "admin_free_limit"
	cbAdminBcast    = "admin_broadcast"
	cbAdminLookup   = "admin_user_stats"
)

func btn(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func mainMenuKeyboard(loggedIn, owner bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{btn("📥 Set source channel", cbSetSource), btn("📤 Set target channel", cbSetTarget)},
		{btn("🔢 Set message range", cbSetRange)},
		{btn("🚀 Start copying", cbStartCopy), btn("🛑 Stop", cbCancelCopy)},
		{btn("💾 Copy to saved messages", cbPersonalCopy)},
		{btn("🔑 Session", cbSessionMenu), btn("📊 My stats", cbMyStats)},
		{btn("⭐ VIP", cbVIP), btn("❓ How to use", cbHelp)},
	}
	if !loggedIn {
		// put the session menu first for users who cannot copy yet
		rows = append([][]tgbotapi.InlineKeyboardButton{
			{btn("🔑 Log in first", cbSessionMenu)},
		}, rows...)
	}
	if owner {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn("🛠 Admin", cbAdmin)})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sessionMenuKeyboard(loggedIn bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{btn("📱 Log in with phone", cbPhoneLogin)},
		{btn("📋 Log in with session string", cbStringLogin)},
	}
	if loggedIn {
		rows = append(rows,
			[]tgbotapi.InlineKeyboardButton{btn("ℹ️ Session info", cbSessionInfo)},
			[]tgbotapi.InlineKeyboardButton{btn("🗑 Delete session", cbDeleteSession)},
		)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{btn("⬅️ Back", cbMainMenu)})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func rangeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("📚 Copy all", cbCopyAll)),
		tgbotapi.NewInlineKeyboardRow(btn("✏️ Enter start-end", cbRangeManual)),
		tgbotapi.NewInlineKeyboardRow(btn("🔗 Pick by message links", cbRangeLinks)),
		tgbotapi.NewInlineKeyboardRow(btn("⬅️ Back", cbMainMenu)),
	)
}

func vipKeyboard(plans *config.Plans) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("💳 Payment methods", cbPayment)),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💬 Contact support", "https://t.me/"+plans.SupportUsername),
		),
		tgbotapi.NewInlineKeyboardRow(btn("⬅️ Back", cbMainMenu)),
	)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("⭐ Promote to VIP", cbAdminPromote), btn("⬇️ Demote VIP", cbAdminDemote)),
		tgbotapi.NewInlineKeyboardRow(btn("🔢 Set free limit", cbAdminLimit)),
		tgbotapi.NewInlineKeyboardRow(btn("📣 Broadcast", cbAdminBcast), btn("👤 User stats", cbAdminLookup)),
		tgbotapi.NewInlineKeyboardRow(btn("⬅️ Back", cbMainMenu)),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(btn("⬅️ Back", cbMainMenu)),
	)
}

func vipText(plans *config.Plans) string {
	return fmt.Sprintf(
		"⭐ VIP removes the free message limit and speeds up copying.\n\nPrice: %d EGP / %d USD per month.",
		plans.VIPPriceEGP, plans.VIPPriceUSD,
	)
}

func paymentText(plans *config.Plans) string {
	text := "💳 Payment methods:\n"
	for name, addr := range plans.PaymentMethods {
		text += fmt.Sprintf("\n• %s: %s", name, addr)
	}
	text += fmt.Sprintf("\n\nAfter paying, send the receipt to @%s.", plans.SupportUsername)
	return text
}
