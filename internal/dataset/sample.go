package dataset

import "github.com/dsatow/lexilocal/internal/model"

// Sample returns a small built-in corpus of legal opinions for demos and
// tests. The three cases cover distinct areas of law (contract, civil
// rights, patent) so retrieval quality is easy to eyeball.
func Sample() []model.Document {
	return []model.Document{
		{
			ID:       "001",
			Title:    "Johnson v. Smith",
			Citation: "123 F.3d 456 (9th Cir. 2020)",
			State:    "CA",
			Issuer:   "United States Court of Appeals for the Ninth Circuit",
			Text: `UNITED STATES COURT OF APPEALS FOR THE NINTH CIRCUIT

JOHNSON v. SMITH

No. 20-1234

OPINION

This case involves a contract dispute between Johnson and Smith regarding the sale of commercial property. The plaintiff, Johnson, alleges that the defendant, Smith, breached their purchase agreement by failing to complete the transaction within the specified timeframe.

FACTS

On January 15, 2019, Johnson and Smith entered into a purchase agreement for commercial property located at 123 Main Street, San Francisco, California. The agreement stipulated that the transaction must be completed by March 15, 2019, with a purchase price of $2,500,000.

Smith failed to secure financing by the deadline and requested an extension. Johnson refused the extension and demanded specific performance or damages.

LEGAL ANALYSIS

Under California contract law, time is of the essence clauses are strictly enforced when the parties explicitly agree to such terms. The purchase agreement clearly stated that "time is of the essence" regarding all performance deadlines.

The court finds that Smith materially breached the contract by failing to complete the purchase within the specified timeframe. Johnson is entitled to damages resulting from this breach.

CONCLUSION

The district court's judgment in favor of Johnson is AFFIRMED. Smith is liable for damages including lost profits and additional carrying costs incurred by Johnson due to the breach.`,
		},
		{
			ID:       "002",
			Title:    "Brown v. City of Los Angeles",
			Citation: "789 Cal.App.4th 321 (2021)",
			State:    "CA",
			Issuer:   "California Court of Appeal",
			Text: `CALIFORNIA COURT OF APPEAL, SECOND DISTRICT

BROWN v. CITY OF LOS ANGELES

No. 21-5678

CIVIL RIGHTS VIOLATION - FOURTH AMENDMENT

OPINION

This appeal arises from a civil rights lawsuit under 42 U.S.C. § 1983, alleging that the City of Los Angeles and its police officers violated Brown's Fourth Amendment rights during a traffic stop.

FACTS

On June 10, 2020, Los Angeles Police Department officers stopped Brown's vehicle for speeding. During the stop, officers allegedly used excessive force when Brown questioned the basis for the stop. Officers also searched Brown's vehicle without consent or probable cause.

Body camera footage shows Brown was cooperative throughout the encounter. The search yielded no contraband or evidence of criminal activity.

ANALYSIS

The Fourth Amendment protects against unreasonable searches and seizures. A traffic stop constitutes a seizure under the Fourth Amendment and must be justified by reasonable suspicion of criminal activity.

While the initial stop for speeding was justified, the subsequent search of Brown's vehicle lacked probable cause or exigent circumstances. The officers' actions exceeded the scope of a routine traffic stop.

CONCLUSION

The judgment of the district court is REVERSED. The case is remanded for further proceedings on Brown's Fourth Amendment claims.`,
		},
		{
			ID:       "003",
			Title:    "Tech Corp v. Innovate LLC",
			Citation: "456 F.Supp.3d 789 (N.D. Cal. 2022)",
			State:    "CA",
			Issuer:   "United States District Court for the Northern District of California",
			Text: `UNITED STATES DISTRICT COURT FOR THE NORTHERN DISTRICT OF CALIFORNIA

TECH CORP v. INNOVATE LLC

No. 22-9012

PATENT INFRINGEMENT - PRELIMINARY INJUNCTION

ORDER

Plaintiff Tech Corp moves for a preliminary injunction against defendant Innovate LLC, alleging infringement of its patent covering machine learning optimization techniques.

BACKGROUND

Tech Corp holds U.S. Patent No. 10,123,456 for a method of optimizing neural network training. Innovate LLC released a competing product that Tech Corp alleges practices the claimed method.

LEGAL STANDARD

A preliminary injunction requires the movant to establish: (1) likelihood of success on the merits; (2) irreparable harm absent relief; (3) the balance of equities tips in its favor; and (4) an injunction is in the public interest.

ANALYSIS

Tech Corp has shown a likelihood of success on its infringement claim. The claim chart comparing the patent claims to Innovate's product demonstrates that each claim element is likely present. Innovate's invalidity defenses raise only minor questions.

Tech Corp has also demonstrated irreparable harm through evidence of lost market share and price erosion in a two-competitor market.

CONCLUSION

The motion for a preliminary injunction is GRANTED. Innovate LLC is enjoined from making, using, or selling the accused product pending trial.`,
		},
	}
}
