package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/achibot/core/telegram/format"
)

// commandSpec describes one bot command. Handlers are bound in Register.
type commandSpec struct {
	name    string
	args    string
	desc    string
	admin   bool
	hidden  bool
	aliases []string
}

var commandTable = []commandSpec{
	{name: "start", desc: "Привітання та список команд", aliases: []string{"help"}},
	{name: "select", desc: "Почати навігацію класифікатором", aliases: []string{"menu"}},
	{name: "achi", desc: "Навігація АКМІ (процедури)"},
	{name: "mkh10", desc: "Навігація МКХ-10 (хвороби)", aliases: []string{"icd10"}},
	{name: "back", desc: "Повернутися на рівень вище"},
	{name: "reset", desc: "Скинути навігацію"},
	{name: "search", args: "<текст>", desc: "Пошук кодів за назвою або кодом"},
	{name: "code", args: "<код>", desc: "Показати код та його шлях"},
	{name: "pin", args: "<код>", desc: "Закріпити код"},
	{name: "unpin", args: "<код>", desc: "Відкріпити код"},
	{name: "pins", desc: "Закріплені коди"},
	{name: "caps", args: "<текст>", desc: "Повторити текст великими літерами"},
	{name: "stats", desc: "Статистика класифікаторів", admin: true, hidden: true},
}

// greeting lists the public commands. Classifier commands for trees that
// are not loaded are left out.
func greeting(loaded func(name string) bool) string {
	var b strings.Builder
	b.WriteString("*Вітаю!* Я допоможу знайти код в класифікаторах АКМІ та МКХ-10.\n\n")
	for _, c := range commandTable {
		if c.admin || c.hidden {
			continue
		}
		if isClassifierCommand(c.name) && !loaded(c.name) {
			continue
		}
		line := "/" + c.name
		if c.args != "" {
			line += " " + c.args
		}
		fmt.Fprintf(&b, "%s - %s\n", format.MD(line), format.MD(c.desc))
	}
	b.WriteString("\nМожна також написати боту в будь-якому чаті: @бот текст")
	return b.String()
}

func isClassifierCommand(name string) bool {
	return name == "achi" || name == "mkh10"
}
