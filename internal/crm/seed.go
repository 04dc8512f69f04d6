package crm

import (
	"context"
	"fmt"
	"math/rand/v2"

	"gorm.io/gorm"
)

var seedContacts = []struct {
	name, phone, email string
	status             Status
}{
	{"Ahmad Al-Zoubi", "+962791000001", "ahmad@company.com", StatusActive},
	{"Sara Khalil", "+962792000002", "sara@startup.io", StatusActive},
	{"Omar Hassan", "+962793000003", "omar@tech.jo", StatusActive},
	{"Lina Mansour", "+962794000004", "lina@design.com", StatusInactive},
	{"Khaled Nasser", "+962795000005", "khaled@corp.jo", StatusActive},
	{"Rania Faris", "+962796000006", "rania@agency.com", StatusActive},
	{"Yousef Barakat", "+962797000007", "yousef@dev.io", StatusInactive},
	{"Dina Sharif", "+962798000008", "dina@media.jo", StatusActive},
	{"Tariq Awad", "+962799000009", "tariq@sales.com", StatusActive},
	{"Nour Haddad", "+962780000010", "nour@market.jo", StatusActive},
	{"Fadi Khatib", "+962781000011", "fadi@build.com", StatusInactive},
	{"Hala Jubran", "+962782000012", "hala@consult.jo", StatusActive},
	{"Zaid Qasem", "+962783000013", "zaid@finance.com", StatusActive},
	{"Mona Atiyeh", "+962784000014", "mona@legal.jo", StatusActive},
	{"Basem Taha", "+962785000015", "basem@hr.com", StatusInactive},
}

var seedTitles = []string{
	"Schedule follow-up call", "Send proposal document", "Review contract terms",
	"Prepare meeting agenda", "Update contact information", "Send invoice",
	"Complete onboarding", "Draft partnership agreement", "Conduct needs assessment",
	"Deliver project update", "Arrange site visit", "Submit quarterly report",
}

var seedPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

type SeedResult struct {
	Contacts int
	Tasks    int
}

// Seed wipes all contacts and tasks and loads the sample data set. Every
// record goes through the normal create path, so the usual rules apply.
func (s *Service) Seed(ctx context.Context, rnd *rand.Rand) (SeedResult, error) {
	var res SeedResult
	err := s.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Contact{}).Error
	})
	if err != nil {
		return res, fmt.Errorf("clear data: %w", err)
	}

	today := Date(s.now())
	for _, sc := range seedContacts {
		c, err := s.CreateContact(ctx, ContactInput{
			FullName: Some(sc.name),
			Phone:    Some(sc.phone),
			Email:    Some(sc.email),
			Status:   Some(string(sc.status)),
		})
		if err != nil {
			return res, fmt.Errorf("seed contact %q: %w", sc.name, err)
		}
		res.Contacts++

		// Titles are drawn without replacement; they are unique per contact.
		n := 1 + rnd.IntN(4)
		for _, i := range rnd.Perm(len(seedTitles))[:n] {
			due := today.AddDate(0, 0, 1+rnd.IntN(60)).Format(dateLayout)
			_, err := s.CreateTask(ctx, TaskInput{
				Contact:  Some(c.ID),
				Title:    Some(seedTitles[i]),
				DueDate:  Some(due),
				Priority: Some(string(seedPriorities[rnd.IntN(len(seedPriorities))])),
				IsDone:   Some(rnd.IntN(4) == 0),
			})
			if err != nil {
				return res, fmt.Errorf("seed task for %q: %w", sc.name, err)
			}
			res.Tasks++
		}
	}
	return res, nil
}
