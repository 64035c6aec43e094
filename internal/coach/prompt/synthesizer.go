// Package prompt turns a user's stored financial state into the system
// instruction sent to the completion provider.
package prompt

import (
	"strconv"
	"strings"

	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
)

const (
	Preamble = "You are a helpful financial coach. Your job is to help the user improve their financial health, " +
		"manage debt, build credit and reach their financial goals. Use the information below to personalize your advice."

	Closing = "Be encouraging, practical, and specific in your advice. If the user's information is insufficient " +
		"to give specific advice, ask clarifying questions."

	notProvided = "Not provided"
)

// Synthesize renders the instruction text. Goals are listed in the order
// given. Every branch has a fallback, so the result is never empty.
func Synthesize(profile *profiledomain.Profile, credit *creditdomain.Credit, goals []goaldomain.Goal) string {
	var b strings.Builder

	b.WriteString(Preamble)
	b.WriteString("\n\n")

	writeProfile(&b, profile)

	if credit != nil {
		b.WriteString("\n")
		writeCredit(&b, credit)
	}

	if len(goals) > 0 {
		b.WriteString("\n")
		writeGoals(&b, goals)
	}

	b.WriteString("\n")
	b.WriteString(Closing)
	return b.String()
}

func writeProfile(b *strings.Builder, p *profiledomain.Profile) {
	name, age, email := "Unknown", notProvided, notProvided
	if p != nil {
		if full := fullName(p.FirstName, p.LastName); full != "" {
			name = full
		}
		if p.Age != nil {
			age = strconv.Itoa(*p.Age)
		}
		if v := deref(p.Email); v != "" {
			email = v
		}
	}

	b.WriteString("User Profile:\n")
	b.WriteString("- Name: " + name + "\n")
	b.WriteString("- Age: " + age + "\n")
	b.WriteString("- Email: " + email + "\n")
}

func writeCredit(b *strings.Builder, c *creditdomain.Credit) {
	score := notProvided
	if c.CreditScore != nil {
		score = strconv.Itoa(*c.CreditScore)
	}
	debt := notProvided
	if c.TotalDebt != nil {
		debt = "$" + FormatAmount(*c.TotalDebt)
	}
	late := "0"
	if c.LatePayments != nil {
		late = strconv.Itoa(*c.LatePayments)
	}
	utilization := notProvided
	if c.CreditUtilization != nil {
		utilization = FormatAmount(*c.CreditUtilization) + "%"
	}

	b.WriteString("Credit Information:\n")
	b.WriteString("- Credit Score: " + score + "\n")
	b.WriteString("- Total Debt: " + debt + "\n")
	b.WriteString("- Late Payments: " + late + "\n")
	b.WriteString("- Credit Utilization: " + utilization + "\n")
}

func writeGoals(b *strings.Builder, goals []goaldomain.Goal) {
	b.WriteString("Financial Goals:\n")
	for i, g := range goals {
		b.WriteString(strconv.Itoa(i+1) + ". " + g.Title)
		if g.TargetAmount != nil {
			b.WriteString(" (Target: $" + FormatAmount(*g.TargetAmount) + ")")
		}
		if due := g.TargetDateString(); due != "" {
			b.WriteString(" (Due: " + due + ")")
		}
		b.WriteString("\n")

		status := string(g.Status)
		if status == "" {
			status = string(goaldomain.StatusActive)
		}
		priority := string(g.Priority)
		if priority == "" {
			priority = string(goaldomain.PriorityMedium)
		}
		b.WriteString("   Status: " + status + ", Priority: " + priority + "\n")

		if desc := deref(g.Description); desc != "" {
			b.WriteString("   Description: " + desc + "\n")
		}
	}
}

// FormatAmount prints a number without trailing zero decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fullName(first, last *string) string {
	return strings.TrimSpace(deref(first) + " " + deref(last))
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
