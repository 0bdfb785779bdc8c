package docx

import (
	"path"
	"strings"

	"alfredoptarigan/cv-formatter/internal/models"
)

const headshotPlaceholder = "[ Headshot Placeholder 4.7 cm ]"

// RenderCV renders the client facing CV. headshot may be nil, in which case a
// placeholder line is printed where the photo would go.
func RenderCV(cv *models.StructuredCV, headshot *Image) ([]byte, error) {
	d := &document{image: headshot}

	d.add(paragraph{
		centered:   true,
		spaceAfter: 80,
		runs:       []run{{text: cv.FullName, bold: true, size: 36}},
	})
	d.add(paragraph{
		centered:   true,
		spaceAfter: 200,
		runs:       []run{{text: CapitalizeWords(cv.JobTitle), italics: true, size: 24}},
	})

	if headshot != nil {
		d.add(paragraph{centered: true, spaceAfter: 300, image: true})
	} else {
		d.add(paragraph{centered: true, spaceAfter: 300, runs: []run{{text: headshotPlaceholder, size: 20}}})
	}

	pd := cv.PersonalDetails
	d.heading("Personal Details")
	d.label("Nationality", pd.Nationality)
	d.label("Languages", strings.Join(pd.Languages, ", "))
	d.label("Marital Status", pd.MaritalStatus)
	d.label("Email", pd.Email)
	d.label("Phone", pd.Phone)
	d.label("Location", pd.Location)

	d.heading("Profile")
	d.add(paragraph{spaceAfter: 200, runs: []run{{text: Tidy(cv.Profile), size: 22}}})

	// listed in reverse extraction order
	d.heading("Experience")
	for i := len(cv.Experience) - 1; i >= 0; i-- {
		e := cv.Experience[i]
		d.add(paragraph{
			spaceAfter: 40,
			runs:       []run{{text: CapitalizeWords(e.Role) + " - " + e.Company, bold: true, size: 24}},
		})
		dates := joinNonEmpty(" - ", FormatDate(e.StartDate), FormatDate(e.EndDate))
		d.add(paragraph{
			spaceAfter: 80,
			runs:       []run{{text: joinNonEmpty(" • ", e.Location, dates), italics: true, size: 20}},
		})
		for _, b := range e.Bullets {
			d.bulletItem(b)
		}
		d.spacer()
	}

	d.heading("Education")
	for _, ed := range cv.Education {
		runs := []run{{text: ed.Institution + " - " + ed.Program, size: 22}}
		if years := joinNonEmpty(" - ", ed.StartYear.String(), ed.EndYear.String()); years != "" {
			runs = append(runs, run{text: " (" + years + ")", size: 22})
		}
		d.add(paragraph{spaceAfter: 80, runs: runs})
	}

	d.heading("Key Skills")
	for _, s := range cv.Skills {
		d.bulletItem(s)
	}
	d.spacer()

	d.heading("Interests")
	for _, i := range cv.Interests {
		d.bulletItem(i)
	}

	return d.pack()
}

// RenderRegistration renders the registration form.
func RenderRegistration(reg *models.Registration) ([]byte, error) {
	d := &document{}

	d.add(paragraph{style: "Title", runs: []run{{text: "Registration Form"}}})

	fields := []struct {
		label string
		value models.FlexString
	}{
		{"Full Name", reg.FullName},
		{"Email", reg.Email},
		{"Phone", reg.Phone},
		{"Languages", models.FlexString(strings.Join(reg.Languages, ", "))},
		{"Nationality", reg.Nationality},
		{"Date of Birth", reg.DOB},
		{"Gender", reg.Gender},
		{"Preferred Gender Pronouns", reg.PreferredPronouns},
		{"Marital Status", reg.MaritalStatus},
		{"Dependants", reg.Dependants},
		{"Are you legal and have the correct documents to work in the UK?", reg.WorkInUK},
		{"National Insurance Number", reg.NationalInsuranceNumber},
		{"UTR Number if Self-Employed", reg.UTRNumber},
		{"Do you have a current DBS?", reg.CurrentDBS},
		{"Do you have a criminal record?", reg.CriminalRecord},
		{"Do you smoke/vape?", reg.SmokesVapes},
		{"Happy to work in a residence with pets?", reg.WorkWithPets},
		{"Do you have a driving licence?", reg.DrivingLicence},
		{"Is your licence clean?", reg.LicenceClean},
		{"Positions applying for", reg.PositionsApplyingFor},
		{"Yearly desired salary", reg.YearlyDesiredSalary},
		{"Current notice period", reg.CurrentNoticePeriod},
		{"Preferred work location", reg.PreferredWorkLocation},
		{"Live in or out positions preferred?", reg.LiveInOrOut},
	}
	for _, f := range fields {
		d.label(f.label, f.value.String())
	}

	d.add(paragraph{spaceAfter: 80, runs: []run{{text: "Emergency Contact Details", bold: true, size: 22}}})
	ec := reg.EmergencyContactDetails
	d.label("Name", ec.Name.String())
	d.label("Telephone", ec.Phone.String())
	d.label("Relationship to Candidate", ec.Relationship.String())

	return d.pack()
}

// ExportFilename builds "<base>_<suffix>.docx" from the uploaded file name.
// The extension is dropped and anything outside [A-Za-z0-9_-] becomes '_'.
func ExportFilename(originalFilename, suffix string) string {
	base := strings.TrimSuffix(originalFilename, path.Ext(originalFilename))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, base)
	return clean + "_" + suffix + ".docx"
}
