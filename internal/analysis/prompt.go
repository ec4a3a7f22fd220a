package analysis

import (
	"bytes"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a professional Indian pharmacist reviewing a prescription. Analyze the prescription below and answer with JSON only.

Prescription Text:
{{.Prescription}}

Output format:
[
    {
        "medication_name": "Medication Name",
        "prescribed_dose": "Dose",
        "frequency": "Frequency",
        "overdose": true/false,
        "reasoning": "Detailed reasoning about safety, contraindications, etc.",
        "prescribed_cost": "Approximate cost in Indian Rupees (Rs.)",
        "recommended_dose": "Recommended dose based on WHO and Indian guidelines",
        "cheaper_alternatives": [
            {
                "name": "Alternative Name",
                "cost": "Approximate cost in Indian Rupees (Rs.)",
                "reason": "Why this alternative is recommended",
                "availability": "Widely available in India / Limited availability"
            }
        ]
    }
]

Guidelines:
1. Follow the WHO Essential Medicines List and the Indian National List of Essential Medicines (NLEM).
2. Dosing:
   - Compare the prescribed dose with WHO and Indian recommended doses
   - Take the patient's age, weight and condition into account when they are given
   - Check for contraindications relevant to the Indian population
3. Pricing:
   - Give current Indian market prices in Rs. for the prescribed brand and every alternative
   - Compare against specific brands from different pharmaceutical companies
4. Alternatives:
   - Suggest specific brands from other manufacturers (e.g. Cipla, Ranbaxy, Sun Pharma, Dr. Reddy's) and name the manufacturer
   - Consider bioequivalence, therapeutic equivalence and fixed-dose combinations
   - Only suggest brands that are commonly stocked by Indian pharmacies
   - Never suggest the prescribed brand itself
5. When no cheaper alternative exists:
   - State "No cheaper alternative available in India"
   - Explain why (single-source drug, patent protection, ...)
   - Mention generic availability and any applicable dosage adjustment

Reference brands:
- Metformin: Glycomet (Cipla), Glucomet (Ranbaxy), Glim (Sun Pharma)
- Atorvastatin: Atorva (Cipla), Atorlip (Dr. Reddy's), Lipitor (Pfizer)
- Amlodipine: Amlovas (Cipla), Stamlor (Ranbaxy), Amlokind (Sun Pharma)
- Acetaminophen: Crocin (GSK), Calpol (GSK), Paracetamol (various generics)
- Pantoprazole: Pantocid (Cipla), Pantop (Ranbaxy), Pantozole (Sun Pharma)
- Vitamin D3: D3 (Cipla), D3 (Ranbaxy), D3 (Sun Pharma)
- Aspirin: Aspro (GSK), Aspirin (Bayer), Aspirin (various generics)
`))

// BuildPrompt renders the analysis prompt for a prescription transcript.
func BuildPrompt(prescription string) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, struct{ Prescription string }{prescription}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
