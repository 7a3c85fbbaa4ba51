package bot

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/lebot/internal/auth"
	"github.com/mmynk/lebot/internal/calculator"
	"github.com/mmynk/lebot/internal/ledger"
	"github.com/mmynk/lebot/internal/models"
)

// Replies use Telegram's legacy Markdown: *bold* and `code`.

const timeLayout = "2006-01-02 15:04:05"

const textWelcome = "🤖 *智能算价机器人*\n\n" +
	"*使用方法：*\n" +
	"以 `a` 开头发送订单内容即可\n\n" +
	"*示例：*\n" +
	"```\n" +
	"a d程\n" +
	"13045201820\n" +
	"黑龙江省齐齐哈尔市依安县依安镇翰林新居六栋一单元\n" +
	"雪茄鸭嘴兽 铁观音 绿豆 备选龙井\n" +
	"高维 绿豆 备选蓝莓\n" +
	"总186\n" +
	"```\n\n" +
	"*可用命令：*\n" +
	"`/start` - 开始使用\n" +
	"`/bill` - 查看当前账单\n" +
	"`/history` - 查看账单历史\n" +
	"`/id` - 查看用户ID\n" +
	"`/help` - 显示帮助信息\n\n" +
	"*管理员命令：*\n" +
	"`+金额` - 增加账单 (如: `+100`)\n" +
	"`-金额` - 减少账单 (如: `-50`)\n" +
	"`清账` - 清空账单和历史数据\n" +
	"`/set_admin` - 设置管理员"

const textHelp = "📖 *帮助信息*\n\n" +
	"*报单格式：*\n" +
	"以 `a` 开头，最后一行包含 `总xxx` 或 `合计xxx`\n\n" +
	"*支持的格式：*\n" +
	"• `总186` - 直接识别金额\n" +
	"• `总60*2+60+6=186` - 带算式的金额（从左到右计算）\n\n" +
	"*查询命令：*\n" +
	"`/bill` - 查看当前账单\n" +
	"`/history` - 查看账单历史\n" +
	"`/id` - 查看用户ID（回复他人消息可查看对方ID）\n\n" +
	"*管理员命令：*\n" +
	"`+100` - 增加100元\n" +
	"`-50` - 减少50元\n" +
	"`清账` - 清空账单（会删除历史数据）\n\n" +
	"*超级管理员命令：*\n" +
	"`/set_admin [用户ID] [--global]` - 设置管理员\n" +
	"`/remove_admin [用户ID] [--global]` - 移除管理员\n" +
	"`/list_admins` - 查看管理员列表"

const (
	textNoBill                  = "📊 当前群组暂无账单记录"
	textNoHistory               = "📋 暂无账单历史记录"
	textAdjustUnauthorized      = "❌ 只有管理员才能调整账单"
	textClearUnauthorized       = "❌ 只有管理员才能清账"
	textSetAdminUnauthorized    = "❌ 只有超级管理员才能设置管理员"
	textRemoveAdminUnauthorized = "❌ 只有超级管理员才能移除管理员"
	textListAdminsUnauthorized  = "❌ 只有超级管理员才能查看管理员列表"
	textCannotRemoveSuper       = "❌ 无法移除配置文件中的超级管理员\n\n如需移除，请修改 .env 文件中的 SUPER_ADMIN_IDS"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func renderParseFailure(err error) string {
	var reason string
	switch {
	case errors.Is(err, models.ErrNoTotalFound):
		reason = "未找到总价行，请在最后一行写 `总xxx`"
	case errors.Is(err, models.ErrTotalMismatch):
		reason = "算式结果与填写的总价不一致，请检查后重新发送"
	default:
		reason = "总价算式无法计算，请确认格式正确（如 `总60*2+60+6`）"
	}
	return "❌ 无法识别价格信息\n\n" + reason
}

func renderOrderAccepted(order *models.ParsedOrder, receipt ledger.Receipt) string {
	var b strings.Builder
	b.WriteString("✅ 订单已记录\n")
	fmt.Fprintf(&b, "💰 金额: `%s` 元\n", money(order.Total))
	fmt.Fprintf(&b, "📊 当前总额: `%s` 元", money(receipt.Balance))
	if order.Expression != "" {
		fmt.Fprintf(&b, "\n🧮 算式: `%s`", order.Expression)
	}
	if order.Mismatch() {
		fmt.Fprintf(&b, "\n⚠️ 填写的总价 `%s` 与算式结果不一致，已按算式计入", money(*order.StatedTotal))
	}
	return b.String()
}

func renderAdjustment(delta, balance decimal.Decimal) string {
	action := "增加"
	if delta.IsNegative() {
		action = "减少"
	}
	return fmt.Sprintf("✅ 已%s账单 `%s` 元\n📊 当前总额: `%s` 元", action, money(delta.Abs()), money(balance))
}

func renderCleared(result ledger.ClearResult) string {
	previous := decimal.Zero
	if result.Initialized {
		previous = result.PreviousBalance
	}
	return fmt.Sprintf("🗑️ 账单已清空\n"+
		"💰 清空前总额: `%s` 元\n"+
		"📊 当前总额: `0.00` 元\n"+
		"⚠️ 已删除 %d 条历史记录", money(previous), result.ClearedEntries)
}

func renderBill(l *models.GroupLedger, summary calculator.Summary, loc *time.Location) string {
	name := l.GroupName
	if name == "" {
		name = fmt.Sprintf("chat_%d", l.GroupID)
	}
	var b strings.Builder
	b.WriteString("📊 *当前账单*\n\n")
	fmt.Fprintf(&b, "🏠 群组: %s\n", escape(name))
	fmt.Fprintf(&b, "💰 总额: `%s` 元\n", money(l.Balance))
	fmt.Fprintf(&b, "📦 订单数: %d 笔 (`%s` 元)\n", summary.OrderCount, money(summary.OrderTotal))
	if summary.CreditCount > 0 || summary.DebitCount > 0 {
		fmt.Fprintf(&b, "🛠 调整: +`%s` / -`%s` 元\n", money(summary.CreditTotal), money(summary.DebitTotal.Abs()))
	}
	fmt.Fprintf(&b, "🕒 更新: %s", l.UpdatedAt.In(loc).Format(timeLayout))
	return b.String()
}

var kindNames = map[models.EntryKind]string{
	models.EntryOrder:       "📦 订单",
	models.EntryAdminCredit: "➕ 增加",
	models.EntryAdminDebit:  "➖ 减少",
}

func renderHistory(entries []models.LedgerEntry, loc *time.Location) string {
	lines := []string{"📋 *最近账单历史*"}
	for _, e := range entries {
		name := kindNames[e.Kind]
		if name == "" {
			name = string(e.Kind)
		}
		sign := ""
		if e.Delta.IsPositive() {
			sign = "+"
		}
		actor := e.ActorName
		if actor == "" {
			actor = fmt.Sprintf("%d", e.ActorID)
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s%s元 | %s",
			name, escape(actor), sign, money(e.Delta), e.Timestamp.In(loc).Format("01-02 15:04")))
	}
	lines = append(lines, fmt.Sprintf("\n🕒 最近更新: %s", entries[0].Timestamp.In(loc).Format(timeLayout)))
	return strings.Join(lines, "\n")
}

func renderRepliedID(name string, id int64) string {
	if name == "" {
		name = "未知用户"
	}
	return fmt.Sprintf("👤 *%s* 的用户ID：\n\n`%d`", escape(name), id)
}

func renderOwnID(id int64) string {
	return fmt.Sprintf("👤 你的用户ID：\n\n`%d`\n\n💡 提示：回复别人的消息后使用此命令，可以查看对方的ID", id)
}

func commandName(grant bool) string {
	if grant {
		return "/set_admin"
	}
	return "/remove_admin"
}

func renderBadUserID(grant bool) string {
	cmd := commandName(grant)
	return "❌ 用户ID必须是数字\n\n" +
		"📋 使用方法：\n" +
		fmt.Sprintf("• 回复用户消息: `%s [--global]`\n", cmd) +
		fmt.Sprintf("• 直接指定ID: `%s <用户ID> [--global]`", cmd)
}

func renderAdminUsage(grant, global bool) string {
	cmd := commandName(grant)
	action := "设置"
	if !grant {
		action = "移除"
	}
	var b strings.Builder
	b.WriteString("📋 *使用方法：*\n\n")
	if global {
		fmt.Fprintf(&b, "%s全局管理员：\n", action)
		fmt.Fprintf(&b, "• 回复用户消息: `%s --global`\n", cmd)
		fmt.Fprintf(&b, "• 指定用户ID: `%s <用户ID> --global`\n\n", cmd)
	} else {
		fmt.Fprintf(&b, "%s群组管理员：\n", action)
		fmt.Fprintf(&b, "• 回复用户消息: `%s`\n", cmd)
		fmt.Fprintf(&b, "• 指定用户ID: `%s <用户ID>`\n\n", cmd)
	}
	b.WriteString("参数说明：\n")
	b.WriteString("`--global` 或 `-g`: 全局管理员（所有群组有效）")
	return b.String()
}

func renderGroupOnly(grant bool) string {
	cmd := commandName(grant)
	return fmt.Sprintf("⚠️ 群组管理员需要在群组中设置\n\n如需全局管理员，请使用：`%s --global`", cmd)
}

func renderAdminChange(c AdminChange, targetName string) string {
	scope := "本群组管理员"
	if c.Global {
		scope = "*全局管理员*（所有群组有效）"
	}
	name := escape(targetName)
	switch {
	case c.Granted && c.Changed:
		return fmt.Sprintf("✅ 已设置 %s 为%s", name, scope)
	case c.Granted:
		return fmt.Sprintf("ℹ️ %s 已经是%s", name, scope)
	case c.Changed:
		return fmt.Sprintf("✅ 已移除 %s 的%s权限", name, scope)
	default:
		return fmt.Sprintf("❌ %s 不是%s", name, scope)
	}
}

func renderAdminList(view auth.AdminView) string {
	lines := []string{"👑 *管理员列表*\n"}

	lines = append(lines, "📁 *超级管理员（配置文件）：*")
	if len(view.SuperAdmins) == 0 {
		lines = append(lines, "  暂无")
	}
	for _, id := range view.SuperAdmins {
		lines = append(lines, fmt.Sprintf("  • `%d`", id))
	}

	lines = append(lines, "\n🌐 *全局管理员：*")
	if len(view.Global) == 0 {
		lines = append(lines, "  暂无")
	}
	for _, id := range view.Global {
		lines = append(lines, fmt.Sprintf("  • `%d`", id))
	}

	groupIDs := make([]int64, 0, len(view.Group))
	for id := range view.Group {
		groupIDs = append(groupIDs, id)
	}
	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })

	lines = append(lines, "\n👥 *群组管理员：*")
	if len(groupIDs) == 0 {
		lines = append(lines, "  暂无")
	}
	for _, gid := range groupIDs {
		members := make([]string, 0, len(view.Group[gid]))
		for _, id := range view.Group[gid] {
			members = append(members, fmt.Sprintf("`%d`", id))
		}
		lines = append(lines, fmt.Sprintf("  • 群 `%d`: %s", gid, strings.Join(members, ", ")))
	}

	total := len(view.SuperAdmins) + len(view.Global)
	for _, members := range view.Group {
		total += len(members)
	}
	lines = append(lines, fmt.Sprintf("\n📊 共 %d 条管理员记录（版本 %d）", total, view.Version))
	return strings.Join(lines, "\n")
}
