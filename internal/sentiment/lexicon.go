package sentiment

import "RedditCurator/internal/domain"

// negators cancel the emotion word that follows them.
var negators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {},
	"neither": {}, "nor": {}, "cannot": {}, "without": {}, "hardly": {}, "nowhere": {},
}

// affect maps words to the emotion categories they evoke.
var affect = map[string][]domain.Emotion{
	"love":        {domain.EmotionJoy, domain.EmotionTrust},
	"loved":       {domain.EmotionJoy, domain.EmotionTrust},
	"happy":       {domain.EmotionJoy, domain.EmotionTrust, domain.EmotionAnticipation},
	"glad":        {domain.EmotionJoy},
	"enjoy":       {domain.EmotionJoy, domain.EmotionAnticipation},
	"enjoyed":     {domain.EmotionJoy},
	"fun":         {domain.EmotionJoy, domain.EmotionAnticipation},
	"great":       {domain.EmotionJoy},
	"awesome":     {domain.EmotionJoy, domain.EmotionSurprise},
	"amazing":     {domain.EmotionJoy, domain.EmotionSurprise},
	"wow":         {domain.EmotionSurprise},
	"impressed":   {domain.EmotionJoy, domain.EmotionSurprise},
	"perfect":     {domain.EmotionJoy, domain.EmotionTrust},
	"excellent":   {domain.EmotionJoy, domain.EmotionTrust},
	"beautiful":   {domain.EmotionJoy, domain.EmotionTrust},
	"thanks":      {domain.EmotionJoy, domain.EmotionTrust},
	"thank":       {domain.EmotionJoy, domain.EmotionTrust},
	"win":         {domain.EmotionJoy, domain.EmotionAnticipation, domain.EmotionSurprise},
	"reliable":    {domain.EmotionTrust},
	"trust":       {domain.EmotionTrust},
	"honest":      {domain.EmotionTrust, domain.EmotionJoy},
	"recommend":   {domain.EmotionTrust},
	"stable":      {domain.EmotionTrust},
	"solid":       {domain.EmotionTrust},
	"support":     {domain.EmotionTrust, domain.EmotionJoy},
	"safe":        {domain.EmotionTrust, domain.EmotionJoy},
	"excited":     {domain.EmotionAnticipation, domain.EmotionJoy, domain.EmotionSurprise},
	"exciting":    {domain.EmotionAnticipation, domain.EmotionJoy, domain.EmotionSurprise},
	"waiting":     {domain.EmotionAnticipation},
	"hope":        {domain.EmotionAnticipation, domain.EmotionJoy, domain.EmotionTrust},
	"upgrade":     {domain.EmotionAnticipation},
	"launch":      {domain.EmotionAnticipation},
	"release":     {domain.EmotionAnticipation},
	"soon":        {domain.EmotionAnticipation},
	"surprised":   {domain.EmotionSurprise},
	"unexpected":  {domain.EmotionSurprise},
	"sudden":      {domain.EmotionSurprise, domain.EmotionFear},
	"hate":        {domain.EmotionAnger, domain.EmotionDisgust},
	"hated":       {domain.EmotionAnger, domain.EmotionDisgust},
	"angry":       {domain.EmotionAnger, domain.EmotionDisgust},
	"annoying":    {domain.EmotionAnger},
	"annoyed":     {domain.EmotionAnger},
	"frustrating": {domain.EmotionAnger, domain.EmotionSadness},
	"frustrated":  {domain.EmotionAnger, domain.EmotionSadness},
	"scam":        {domain.EmotionAnger, domain.EmotionDisgust},
	"overpriced":  {domain.EmotionAnger, domain.EmotionDisgust},
	"garbage":     {domain.EmotionDisgust},
	"trash":       {domain.EmotionDisgust},
	"awful":       {domain.EmotionDisgust, domain.EmotionFear, domain.EmotionSadness},
	"terrible":    {domain.EmotionAnger, domain.EmotionDisgust, domain.EmotionFear, domain.EmotionSadness},
	"horrible":    {domain.EmotionAnger, domain.EmotionDisgust, domain.EmotionFear},
	"worst":       {domain.EmotionAnger, domain.EmotionDisgust},
	"broken":      {domain.EmotionAnger, domain.EmotionSadness},
	"crash":       {domain.EmotionFear, domain.EmotionSurprise},
	"crashes":     {domain.EmotionFear, domain.EmotionAnger},
	"dead":        {domain.EmotionSadness, domain.EmotionFear},
	"died":        {domain.EmotionSadness, domain.EmotionFear},
	"fail":        {domain.EmotionSadness, domain.EmotionDisgust},
	"failed":      {domain.EmotionSadness},
	"failure":     {domain.EmotionSadness, domain.EmotionFear},
	"disappointed": {
		domain.EmotionAnger, domain.EmotionDisgust, domain.EmotionSadness,
	},
	"disappointing": {domain.EmotionSadness, domain.EmotionDisgust},
	"regret":        {domain.EmotionSadness},
	"sad":           {domain.EmotionSadness},
	"shame":         {domain.EmotionSadness, domain.EmotionDisgust, domain.EmotionFear},
	"lost":          {domain.EmotionSadness},
	"pain":          {domain.EmotionSadness, domain.EmotionFear},
	"worried":       {domain.EmotionFear, domain.EmotionAnticipation},
	"afraid":        {domain.EmotionFear},
	"scary":         {domain.EmotionFear},
	"risk":          {domain.EmotionFear, domain.EmotionAnticipation},
	"warning":       {domain.EmotionFear},
	"hot":           {domain.EmotionAnger},
}
