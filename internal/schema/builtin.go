package schema

// Builtin returns the default banking PII schema. Priorities rank
// structurally specific formats (fixed-length government and payment IDs)
// ahead of broad ones (names, cities), so cross-validation never lets a
// generic pattern absorb a value that belongs to a narrower class.
func Builtin() []Definition {
	return []Definition{
		{
			Name:     "PAN",
			Pattern:  `[A-Z]{3}[PFCHAT][A-Z][0-9]{4}[A-Z]`,
			Examples: []string{"AAAPA1234A", "BNZPM2501F"},
			Priority: 10,
		},
		{
			Name:     "IFSC",
			Pattern:  `[A-Z]{4}0[A-Z0-9]{6}`,
			Examples: []string{"HDFC0001234", "SBIN0005943"},
			Priority: 20,
		},
		{
			Name:     "VOTERID",
			Pattern:  `[A-Z]{3}[0-9]{7}`,
			Examples: []string{"ABC1234567"},
			Priority: 30,
		},
		{
			Name:     "PASSPORTNUM",
			Pattern:  `[A-Z][0-9]{7}`,
			Examples: []string{"K1234567"},
			Priority: 40,
		},
		{
			Name:     "TRANSACTIONID",
			Pattern:  `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}`,
			Examples: []string{"f47ac10b-58cc-4372-a567-0e02b2c3d479"},
			Priority: 50,
		},
		{
			Name:     "CREDITCARDNUM",
			Pattern:  `[0-9]{4} [0-9]{4} [0-9]{4} [0-9]{4}`,
			Examples: []string{"4111 1111 1111 1111"},
			Priority: 60,
		},
		{
			Name:     "AADHAAR",
			Pattern:  `[0-9]{4} [0-9]{4} [0-9]{4}`,
			Examples: []string{"1234 5678 9012"},
			Priority: 70,
		},
		{
			Name:     "DRIVERLICENSENUM",
			Pattern:  `[A-Z]{2}[- ]?[0-9]{2}[- ]?[0-9]{4}[- ]?[0-9]{7}`,
			Examples: []string{"MH-14-2011-0062821"},
			Priority: 80,
		},
		{
			// Ranks ahead of ACCOUNTNUM: a bare 10-digit mobile number
			// must not be absorbed by the 9-18 digit account pattern.
			Name:     "TELEPHONENUM",
			Pattern:  `(?:\+91[- ]?|0)?[6-9][0-9]{9}`,
			Examples: []string{"9876543210", "+91-9876543210"},
			Priority: 90,
		},
		{
			Name:     "EMAIL",
			Pattern:  `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
			Examples: []string{"arun.sharma@example.com"},
			Priority: 100,
		},
		{
			Name:     "DATE",
			Pattern:  `[0-9]{2}[-/][0-9]{2}[-/][0-9]{4}`,
			Examples: []string{"15/08/1990", "04-08-2024"},
			Priority: 110,
		},
		{
			Name:     "TIME",
			Pattern:  `[0-9]{2}:[0-9]{2}(?::[0-9]{2})?`,
			Examples: []string{"12:25", "23:59:59"},
			Priority: 120,
		},
		{
			Name:     "ZIPCODE",
			Pattern:  `[0-9]{6}`,
			Examples: []string{"110001"},
			Priority: 130,
		},
		{
			Name:     "GENDER",
			Pattern:  `(?:M|F|Male|Female|MALE|FEMALE)`,
			Examples: []string{"Male", "F"},
			Priority: 140,
		},
		{
			Name:     "AGE",
			Pattern:  `[0-9]{1,3}`,
			Examples: []string{"28"},
			Priority: 150,
		},
		{
			Name:     "ACCOUNTNUM",
			Pattern:  `[0-9]{9,18}`,
			Examples: []string{"123456789012"},
			Priority: 160,
		},
		{
			Name:     "BUILDINGNUM",
			Pattern:  `[0-9]{1,4}`,
			Examples: []string{"1234"},
			Priority: 170,
		},
		{
			Name:     "STREET",
			Pattern:  `[0-9]{1,4},? [A-Za-z0-9 .]+(?:Street|Road|Avenue|Lane|Drive|Way|Boulevard|Place)`,
			Examples: []string{"12 MG Road", "221 Baker Street"},
			Priority: 180,
		},
		{
			Name:     "FULLNAME",
			Pattern:  `[A-Z][a-z]+(?: [A-Z][a-z]+)+`,
			Examples: []string{"Arun Sharma"},
			Priority: 190,
		},
		{
			Name:     "GIVENNAME",
			Pattern:  `[A-Z][a-z]{2,20}`,
			Examples: []string{"Arun"},
			Priority: 200,
		},
		{
			Name:     "SURNAME",
			Pattern:  `[A-Z][a-z]{2,20}`,
			Examples: []string{"Sharma"},
			Priority: 210,
		},
		{
			Name:     "CITY",
			Pattern:  `[A-Z][a-z]+(?: [A-Z][a-z]+)*`,
			Examples: []string{"Mumbai", "New Delhi"},
			Priority: 220,
		},
	}
}
